package saunasite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/adrg/frontmatter"
	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/eringen/saunasite/content"
	"github.com/eringen/saunasite/logger"
	"github.com/eringen/saunasite/slug"
)

const schemaBaseURL = "https://schemas.saunasite.dev/"

// ImportError lists the schema violations found in one import source.
type ImportError struct {
	Source   string
	Problems []string
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("%s: invalid content: %s", e.Source, strings.Join(e.Problems, "; "))
}

// ImportResult counts the records written by an import.
type ImportResult struct {
	Entries int `json:"entries"`
	Images  int `json:"images"`
	Posts   int `json:"posts"`
}

func (r *ImportResult) add(o ImportResult) {
	r.Entries += o.Entries
	r.Images += o.Images
	r.Posts += o.Posts
}

var (
	schemaOnce    sync.Once
	indexSchema   *jsonschema.Schema
	postSchema    *jsonschema.Schema
	schemaLoadErr error
)

func loadSchemas() error {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		for _, name := range []string{"index.json", "post.json"} {
			raw, err := schemaFS.ReadFile("schema/" + name)
			if err != nil {
				schemaLoadErr = err
				return
			}
			doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
			if err != nil {
				schemaLoadErr = fmt.Errorf("parse schema %s: %w", name, err)
				return
			}
			if err := compiler.AddResource(schemaBaseURL+name, doc); err != nil {
				schemaLoadErr = fmt.Errorf("add schema %s: %w", name, err)
				return
			}
		}
		if indexSchema, schemaLoadErr = compiler.Compile(schemaBaseURL + "index.json"); schemaLoadErr != nil {
			return
		}
		postSchema, schemaLoadErr = compiler.Compile(schemaBaseURL + "post.json")
	})
	return schemaLoadErr
}

// validateDoc checks v against schema. v is first normalized to plain JSON
// so YAML-specific values validate the same as their JSON form. The
// normalized JSON is returned for typed decoding.
func validateDoc(schema *jsonschema.Schema, source string, v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	if err := schema.Validate(inst); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return nil, &ImportError{Source: source, Problems: validationProblems(ve)}
		}
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return raw, nil
}

// validationProblems flattens the leaf causes of a validation error.
func validationProblems(ve *jsonschema.ValidationError) []string {
	if len(ve.Causes) == 0 {
		path := "$"
		if len(ve.InstanceLocation) > 0 {
			path = "$." + strings.Join(ve.InstanceLocation, ".")
		}
		return []string{path + ": " + ve.Error()}
	}
	var out []string
	for _, cause := range ve.Causes {
		out = append(out, validationProblems(cause)...)
	}
	return out
}

type importEntry struct {
	content.Entry
	LastModifiedAt string `json:"lastModifiedAt"`
	CreatedAt      string `json:"createdAt"`
}

type indexFile struct {
	Entries []importEntry          `json:"entries"`
	Images  []content.GalleryImage `json:"images"`
}

// ImportIndex reads a YAML content index document and upserts its entries
// and gallery images. Importing the same document again changes nothing.
func (a *App) ImportIndex(ctx context.Context, source string, r io.Reader) (ImportResult, error) {
	if err := loadSchemas(); err != nil {
		return ImportResult{}, err
	}
	var doc any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return ImportResult{}, nil
		}
		return ImportResult{}, fmt.Errorf("%s: parse yaml: %w", source, err)
	}
	raw, err := validateDoc(indexSchema, source, doc)
	if err != nil {
		return ImportResult{}, err
	}
	var file indexFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return ImportResult{}, fmt.Errorf("%s: %w", source, err)
	}

	var res ImportResult
	now := a.now().UTC()
	for _, ie := range file.Entries {
		e := ie.Entry
		if t := parseTimePtr(ie.LastModifiedAt); t != nil {
			e.LastModifiedAt = *t
		}
		if t := parseTimePtr(ie.CreatedAt); t != nil {
			e.CreatedAt = *t
		} else if prev, err := a.Store.GetEntry(ctx, e.URL); err == nil {
			e.CreatedAt = prev.CreatedAt
		}
		if e.CreatedAt.IsZero() && e.LastModifiedAt.IsZero() {
			e.CreatedAt = now
		}
		if err := validateEntry(&e); err != nil {
			return res, fmt.Errorf("%s: entry %s: %w", source, e.URL, err)
		}
		if err := a.Store.SaveEntry(ctx, e); err != nil {
			return res, fmt.Errorf("%s: save entry %s: %w", source, e.URL, err)
		}
		res.Entries++
	}
	for _, img := range file.Images {
		if img.ID == "" {
			img.ID = importedImageID(img.ImageURL)
		}
		if err := a.Store.SaveImage(ctx, img); err != nil {
			return res, fmt.Errorf("%s: save image %s: %w", source, img.ImageURL, err)
		}
		res.Images++
	}
	return res, nil
}

// importedImageID derives a stable id from the image URL so re-importing the
// same index updates images instead of duplicating them.
func importedImageID(imageURL string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(imageURL)).String()
}

type postMatter struct {
	Title       string   `json:"title"`
	Slug        string   `json:"slug"`
	Excerpt     string   `json:"excerpt"`
	Tags        []string `json:"tags"`
	Published   bool     `json:"published"`
	PublishedAt string   `json:"publishedAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

// ImportPost reads a markdown post with YAML frontmatter. The slug defaults
// to the file name.
func (a *App) ImportPost(ctx context.Context, source string, r io.Reader) (content.Post, error) {
	if err := loadSchemas(); err != nil {
		return content.Post{}, err
	}
	var fm map[string]any
	body, err := frontmatter.Parse(r, &fm)
	if err != nil {
		return content.Post{}, fmt.Errorf("%s: parse frontmatter: %w", source, err)
	}
	if fm == nil {
		fm = map[string]any{}
	}
	raw, err := validateDoc(postSchema, source, fm)
	if err != nil {
		return content.Post{}, err
	}
	var m postMatter
	if err := json.Unmarshal(raw, &m); err != nil {
		return content.Post{}, fmt.Errorf("%s: %w", source, err)
	}

	name := slug.Make(m.Slug)
	if name == "" {
		name = slug.FromFilename(source)
	}
	if name == "" {
		return content.Post{}, &ImportError{Source: source, Problems: []string{"$.slug: cannot derive a slug"}}
	}
	post := content.Post{
		Slug:        name,
		Title:       strings.TrimSpace(m.Title),
		Excerpt:     strings.TrimSpace(m.Excerpt),
		Content:     strings.TrimSpace(string(body)),
		Tags:        FilterEmpty(m.Tags),
		Published:   m.Published,
		PublishedAt: parseTimePtr(m.PublishedAt),
		UpdatedAt:   parseTimePtr(m.UpdatedAt),
	}
	if post.Published && post.PublishedAt == nil {
		now := a.now().UTC()
		post.PublishedAt = &now
	}
	if err := a.Store.SavePost(ctx, post); err != nil {
		return content.Post{}, fmt.Errorf("%s: save post: %w", source, err)
	}
	return post, nil
}

// ImportPath imports a single file or every .yaml, .yml and .md file under
// a directory. The cache is invalidated once at the end.
func (a *App) ImportPath(ctx context.Context, root string) (ImportResult, error) {
	var res ImportResult
	defer func() {
		if a.Cache != nil {
			a.Cache.Invalidate()
		}
	}()
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			n, err := a.importFile(ctx, path, a.ImportIndex)
			if err != nil {
				return err
			}
			res.add(n)
		case ".md", ".markdown":
			n, err := a.importFile(ctx, path, a.importPostResult)
			if err != nil {
				return err
			}
			res.add(n)
		}
		return nil
	})
	if err != nil {
		return res, err
	}
	a.Log.Info("content imported", logger.String("path", root),
		logger.Int("entries", res.Entries), logger.Int("images", res.Images), logger.Int("posts", res.Posts))
	return res, nil
}

func (a *App) importPostResult(ctx context.Context, source string, r io.Reader) (ImportResult, error) {
	if _, err := a.ImportPost(ctx, source, r); err != nil {
		return ImportResult{}, err
	}
	return ImportResult{Posts: 1}, nil
}

func (a *App) importFile(ctx context.Context, path string, fn func(context.Context, string, io.Reader) (ImportResult, error)) (ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImportResult{}, err
	}
	defer f.Close()
	return fn(ctx, path, f)
}
