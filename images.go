package saunasite

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/draw"

	"github.com/eringen/saunasite/content"
	"github.com/eringen/saunasite/logger"
	"github.com/eringen/saunasite/slug"
)

const (
	maxImageWidth = 1600
	jpegQuality   = 82
	maxUploadSize = 10 << 20 // 10MB
	uploadsPrefix = "uploads/"
)

// processedImage is an upload after decoding and resizing.
type processedImage struct {
	Filename string
	Width    int
	Height   int
	Caption  string // EXIF ImageDescription, if any
	Data     []byte
}

// processImage decodes data, resizes it to maxImageWidth when wider, and
// re-encodes it as JPEG. EXIF metadata is dropped from the output but its
// ImageDescription is returned as a default caption.
func processImage(data []byte, originalName string) (processedImage, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return processedImage{}, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w, h = maxImageWidth, newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return processedImage{}, fmt.Errorf("encode jpeg: %w", err)
	}

	name := slug.FromFilename(originalName)
	if name == "" {
		name = "image"
	}
	return processedImage{
		Filename: name + ".jpg",
		Width:    w,
		Height:   h,
		Caption:  exifCaption(data),
		Data:     buf.Bytes(),
	}, nil
}

// exifCaption returns the EXIF ImageDescription of data, or "".
func exifCaption(data []byte) string {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	tag, err := x.Get(exif.ImageDescription)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}

// uniqueKey appends a counter until the key is free in storage.
func (a *App) uniqueKey(c echo.Context, filename string) (string, error) {
	ext := ".jpg"
	base := strings.TrimSuffix(filename, ext)
	candidate := uploadsPrefix + filename
	for counter := 2; ; counter++ {
		exists, err := a.Storage.Exists(c.Request().Context(), candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%s-%d%s", uploadsPrefix, base, counter, ext)
	}
}

// imageMeta is the editable metadata of a gallery image.
type imageMeta struct {
	Title       *string `json:"title" form:"title"`
	AltText     *string `json:"altText" form:"altText"`
	Description *string `json:"description" form:"description"`
	Category    *string `json:"category" form:"category"`
	IsPublished *bool   `json:"isPublished" form:"isPublished"`
	OrderIndex  *int    `json:"orderIndex" form:"orderIndex"`
}

func (m imageMeta) apply(img *content.GalleryImage) {
	if m.Title != nil {
		img.Title = strings.TrimSpace(*m.Title)
	}
	if m.AltText != nil {
		img.AltText = strings.TrimSpace(*m.AltText)
	}
	if m.Description != nil {
		img.Description = strings.TrimSpace(*m.Description)
	}
	if m.Category != nil {
		img.Category = strings.TrimSpace(*m.Category)
	}
	if m.IsPublished != nil {
		img.IsPublished = *m.IsPublished
	}
	if m.OrderIndex != nil {
		img.OrderIndex = *m.OrderIndex
	}
}

func formBool(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b || v == "on"
}

func (a *App) handleImageUpload(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "no image file provided")
	}
	if file.Size > maxUploadSize {
		return echo.NewHTTPError(http.StatusBadRequest, "file too large (max 10MB)")
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	raw, err := io.ReadAll(io.LimitReader(src, maxUploadSize+1))
	if err != nil {
		return err
	}

	processed, err := processImage(raw, file.Filename)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid image: "+err.Error())
	}

	ctx := c.Request().Context()
	key, err := a.uniqueKey(c, processed.Filename)
	if err != nil {
		return fmt.Errorf("pick upload key: %w", err)
	}
	url, err := a.Storage.Put(ctx, key, processed.Data, "image/jpeg")
	if err != nil {
		return fmt.Errorf("store upload: %w", err)
	}

	img := content.GalleryImage{
		ID:          uuid.New().String(),
		ImageURL:    url,
		Title:       strings.TrimSpace(c.FormValue("title")),
		AltText:     strings.TrimSpace(c.FormValue("altText")),
		Description: strings.TrimSpace(c.FormValue("description")),
		Category:    strings.TrimSpace(c.FormValue("category")),
		IsPublished: formBool(c.FormValue("isPublished")),
	}
	if img.Description == "" {
		img.Description = processed.Caption
	}
	if v := c.FormValue("orderIndex"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "orderIndex must be an integer")
		}
		img.OrderIndex = n
	} else {
		n, err := a.Store.NextOrderIndex(ctx)
		if err != nil {
			return err
		}
		img.OrderIndex = n
	}

	if err := a.Store.SaveImage(ctx, img); err != nil {
		return err
	}
	a.Cache.Invalidate()
	a.Log.Info("image uploaded", logger.String("id", img.ID), logger.String("url", url),
		logger.Int("width", processed.Width), logger.Int("height", processed.Height))
	return c.JSON(http.StatusCreated, img)
}

func (a *App) handleImageUpdate(c echo.Context) error {
	ctx := c.Request().Context()
	img, err := a.Store.GetImage(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "image not found")
		}
		return err
	}
	var meta imageMeta
	if err := c.Bind(&meta); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid image metadata")
	}
	meta.apply(&img)
	if err := a.Store.SaveImage(ctx, img); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusOK, img)
}

func (a *App) handleImageDelete(c echo.Context) error {
	ctx := c.Request().Context()
	img, err := a.Store.GetImage(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "image not found")
		}
		return err
	}
	if key, ok := a.uploadKey(img.ImageURL); ok {
		if err := a.Storage.Delete(ctx, key); err != nil {
			a.Log.Warn("delete upload", logger.String("key", key), logger.Error(err))
		}
	}
	if err := a.Store.DeleteImage(ctx, img.ID); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return c.NoContent(http.StatusNoContent)
}

// uploadKey maps an image URL produced by Storage back to its key.
// Images hosted elsewhere have no key.
func (a *App) uploadKey(imageURL string) (string, bool) {
	prefix := a.Storage.URL(uploadsPrefix)
	if !strings.HasPrefix(imageURL, prefix) {
		return "", false
	}
	return uploadsPrefix + strings.TrimPrefix(imageURL, prefix), true
}

func (a *App) handleImageList(c echo.Context) error {
	images, err := a.Store.ListImages(c.Request().Context())
	if err != nil {
		return err
	}
	if images == nil {
		images = []content.GalleryImage{}
	}
	return c.JSON(http.StatusOK, images)
}
