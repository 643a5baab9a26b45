// package formatter renders favorites and snack data as CSV, Markdown, plain text and JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/snackx/internal/models"
	"github.com/desertthunder/snackx/internal/shared"
)

// Formats lists the export formats understood by [WriteExport].
var Formats = []string{"json", "csv", "markdown", "txt"}

// FavoritesExport is a favorites collection with optional nutrition details.
type FavoritesExport struct {
	ExportedAt time.Time             `json:"exportedAt"`
	Items      []models.FavoriteItem `json:"items"`
	Details    []models.SnackDetail  `json:"details,omitempty"`
}

// detail returns the nutrition details for id, if they were fetched.
func (e *FavoritesExport) detail(id int64) (models.SnackDetail, bool) {
	for _, d := range e.Details {
		if d.ID == id {
			return d, true
		}
	}
	return models.SnackDetail{}, false
}

func optFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// ExportToCSV converts a FavoritesExport to CSV with columns: ID, Name, Brand, Category, Image.
// When details are present, serving size, energy, sugar, sodium and protein columns follow.
func ExportToCSV(export *FavoritesExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	withDetails := len(export.Details) > 0
	headers := []string{"ID", "Name", "Brand", "Category", "Image"}
	if withDetails {
		headers = append(headers, "ServingSize", "EnergyKcal", "SugarG", "SodiumMg", "ProteinG")
	}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, item := range export.Items {
		record := []string{
			strconv.FormatInt(item.ID, 10),
			item.Name,
			item.Brand,
			item.Category,
			item.Image,
		}
		if withDetails {
			d, _ := export.detail(item.ID)
			record = append(record,
				d.ServingSize,
				optFloat(d.EnergyKcal),
				optFloat(d.SugarG),
				optFloat(d.SodiumMg),
				optFloat(d.ProteinG),
			)
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a FavoritesExport to Markdown.
//
// images maps snack ids to local image paths; entries without one are listed without a picture.
func ExportToMarkdown(export *FavoritesExport, images map[int64]string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# 찜한 간식\n\n")
	buf.WriteString(fmt.Sprintf("**Snacks**: %d\n", len(export.Items)))
	buf.WriteString(fmt.Sprintf("**Exported**: %s\n\n", export.ExportedAt.Format(time.DateTime)))

	for i, item := range export.Items {
		buf.WriteString(fmt.Sprintf("## %d. %s\n\n", i+1, item.Title()))
		if img := images[item.ID]; img != "" {
			buf.WriteString(fmt.Sprintf("![%s](%s)\n\n", item.Title(), img))
		}
		if item.Brand != "" {
			buf.WriteString(fmt.Sprintf("- **Brand**: %s\n", item.Brand))
		}
		if item.Category != "" {
			buf.WriteString(fmt.Sprintf("- **Category**: %s\n", item.Category))
		}

		if d, ok := export.detail(item.ID); ok {
			if d.ServingSize != "" {
				buf.WriteString(fmt.Sprintf("- **Serving**: %s\n", d.ServingSize))
			}
			if rows := d.NutritionRows(); len(rows) > 0 {
				buf.WriteString("\n| 영양성분 | 값 |\n|---|---|\n")
				for _, r := range rows {
					buf.WriteString(fmt.Sprintf("| %s | %s |\n", r.Label, r))
				}
			}
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToText converts a FavoritesExport to plain text format
func ExportToText(export *FavoritesExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Favorites: %d\n\n", len(export.Items)))
	for i, item := range export.Items {
		buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, FavoriteLine(item)))
	}

	return buf.Bytes(), nil
}

// ExportToJSON renders the whole export, details included.
func ExportToJSON(export *FavoritesExport) ([]byte, error) {
	return shared.MarshalJSON(export, true)
}

// FavoriteLine is the one-line summary of a favorite: "Name - Brand (Category) [#id]".
func FavoriteLine(item models.FavoriteItem) string {
	var b strings.Builder
	b.WriteString(item.Title())
	if item.Brand != "" {
		b.WriteString(" - " + item.Brand)
	}
	if item.Category != "" {
		b.WriteString(" (" + item.Category + ")")
	}
	if item.Name != "" {
		fmt.Fprintf(&b, " [#%d]", item.ID)
	}
	return b.String()
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty URL provided", shared.ErrInvalidArgument)
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to download image: %v", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: failed to download image: status %d", shared.ErrNetwork, resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// ExportResult lists the files written by [WriteExport].
type ExportResult struct {
	Files  []string
	Images int
}

// WriteExport writes export in format to path.
//
// The markdown format writes {path}/README.md and, when withImages is set, tries to save each
// snack picture to {path}/images/{id}.jpg; a failed download is reported on warn and skipped.
// Other formats write a single file at path.
func WriteExport(export *FavoritesExport, format, path string, withImages bool, warn io.Writer) (*ExportResult, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: output path", shared.ErrMissingArgument)
	}
	if warn == nil {
		warn = io.Discard
	}

	var (
		data []byte
		err  error
	)
	switch format {
	case "json":
		data, err = ExportToJSON(export)
	case "csv":
		data, err = ExportToCSV(export)
	case "txt":
		data, err = ExportToText(export)
	case "markdown":
		return writeMarkdownExport(export, path, withImages, warn)
	default:
		return nil, fmt.Errorf("%w: unknown format %q (choose from %s)", shared.ErrInvalidArgument, format, strings.Join(Formats, ", "))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s file: %w", format, err)
	}
	return &ExportResult{Files: []string{path}}, nil
}

func writeMarkdownExport(export *FavoritesExport, dir string, withImages bool, warn io.Writer) (*ExportResult, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &ExportResult{Files: []string{}}
	images := map[int64]string{}
	if withImages {
		imgDir := filepath.Join(dir, "images")
		for _, item := range export.Items {
			if item.Image == "" {
				continue
			}
			data, err := DownloadImage(item.Image)
			if err != nil {
				fmt.Fprintf(warn, "Warning: image for %s: %v\n", item.Title(), err)
				continue
			}
			if err := os.MkdirAll(imgDir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create directory: %w", err)
			}
			name := fmt.Sprintf("%d.jpg", item.ID)
			p := filepath.Join(imgDir, name)
			if err := os.WriteFile(p, data, 0644); err != nil {
				fmt.Fprintf(warn, "Warning: failed to save image for %s: %v\n", item.Title(), err)
				continue
			}
			images[item.ID] = "images/" + name
			result.Files = append(result.Files, p)
			result.Images++
		}
	}

	mdData, err := ExportToMarkdown(export, images)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(dir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}
	result.Files = append(result.Files, mdFile)
	return result, nil
}
