package formatter

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/desertthunder/snackx/internal/models"
)

// heart marks favorites in listings.
func heart(fav bool) string {
	if fav {
		return "♥"
	}
	return "♡"
}

// WritePage prints one search page as a table. isFavorite may be nil.
func WritePage(w io.Writer, page *models.SnackPage, isFavorite func(int64) bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tNAME\tBRAND\tCATEGORY\tBADGES")
	for _, s := range page.Items {
		fav := isFavorite != nil && isFavorite(s.ID)
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n", heart(fav), s.ID, s.Name, s.Brand, s.Category, strings.Join(s.Badges, " "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	pages := max(page.TotalPages, 1)
	_, err := fmt.Fprintf(w, "\npage %d/%d · %d snacks\n", page.Page+1, pages, page.TotalElements)
	return err
}

// WriteDetail prints a snack with its serving and nutrition facts.
func WriteDetail(w io.Writer, d *models.SnackDetail, favorite bool) error {
	fmt.Fprintf(w, "%s %s\n", heart(favorite), d.Name)
	if d.Brand != "" {
		fmt.Fprintf(w, "Brand:    %s\n", d.Brand)
	}
	if d.Category != "" {
		fmt.Fprintf(w, "Category: %s\n", d.Category)
	}
	if len(d.Badges) > 0 {
		fmt.Fprintf(w, "Badges:   #%s\n", strings.Join(d.Badges, " #"))
	}
	if d.ServingSize != "" {
		fmt.Fprintf(w, "Serving:  %s\n", d.ServingSize)
	}
	if d.FoodWeight != "" {
		fmt.Fprintf(w, "Weight:   %s\n", d.FoodWeight)
	}

	rows := d.NutritionRows()
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "\nNo nutrition facts available.")
		return err
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t\n", r.Label, r)
	}
	return tw.Flush()
}

// WriteRecommendations prints recommended snacks with the reason they were picked.
func WriteRecommendations(w io.Writer, recs []models.Recommendation) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, "No recommendations for this profile.")
		return err
	}

	for i, r := range recs {
		fmt.Fprintf(w, "%d. %s", i+1, r.Name)
		if r.Brand != "" {
			fmt.Fprintf(w, " - %s", r.Brand)
		}
		fmt.Fprintf(w, " [#%d]\n", r.ID)
		if r.Reason != "" {
			fmt.Fprintf(w, "   why: %s\n", r.Reason)
		}
		if r.AllergyInfo != "" {
			fmt.Fprintf(w, "   allergy: %s\n", r.AllergyInfo)
		}
	}
	return nil
}

// WriteProfile prints the profile with code labels.
func WriteProfile(w io.Writer, p *models.Profile) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Name\t%s\n", p.Username)
	fmt.Fprintf(tw, "Email\t%s\n", p.Email)
	fmt.Fprintf(tw, "Health\t%s\n", listOrDash(models.Labels(models.HealthConcerns, p.Purposes)))
	fmt.Fprintf(tw, "Allergies\t%s\n", listOrDash(models.Labels(models.Allergies, p.Allergies)))
	return tw.Flush()
}

func listOrDash(s []string) string {
	if len(s) == 0 {
		return "-"
	}
	return strings.Join(s, ", ")
}
