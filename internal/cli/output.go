package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	out    io.Writer
	errOut io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, out, errOut io.Writer) *Output {
	return &Output{format: format, out: out, errOut: errOut}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]string{"error": err.Error()}
		if apiErr, ok := err.(*APIError); ok {
			errData["error"] = apiErr.Message
			errData["code"] = apiErr.Code
		}
		data, _ := json.Marshal(errData)
		_, _ = fmt.Fprintln(o.errOut, string(data))
	} else {
		_, _ = fmt.Fprintf(o.errOut, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.out, string(data))
	} else {
		_, _ = fmt.Fprintln(o.out, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case RegisterResult:
		o.printf("%s\nUser ID: %s\n", v.Message, v.ID)
	case LoginResult:
		o.printf("Logged in as %s (%s)\n", v.UserID, v.Role)
	case Image:
		o.printImage(v)
	case ImagePage:
		o.printImagePage(v)
	case UploadResult:
		o.printf("%s\n", v.Message)
		o.printImage(v.Image)
	case RateResult:
		o.printf("%s\n", v.Message)
		o.printRating(v.Rating)
	case Rating:
		o.printRating(v)
	case MedianResult:
		o.printf("Median score: %.2f\n", v.Median)
	case StatsResult:
		o.printf("Likes: %d\nDislikes: %d\nLike percentage: %.1f%%\n", v.LikeCount, v.DislikeCount, v.LikePercentage)
	case []string:
		for _, s := range v {
			o.printf("%s\n", s)
		}
	case HealthResult:
		o.printf("Status: %s\n", v.Status)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.out, format, args...)
}

// RegisterResult response type (matches API)
type RegisterResult struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// LoginResult response type
type LoginResult struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// Rating response type
type Rating struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ImageID   string    `json:"imageId"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Image response type
type Image struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Prompt       string    `json:"prompt"`
	UploadedByID string    `json:"uploadedById"`
	CreatedAt    time.Time `json:"createdAt"`
	Ratings      []Rating  `json:"ratings"`
}

// ImagePage response type
type ImagePage struct {
	Items       []Image `json:"items"`
	TotalCount  int     `json:"totalCount"`
	CurrentPage int     `json:"currentPage"`
	TotalPages  int     `json:"totalPages"`
}

// UploadResult response type
type UploadResult struct {
	Message string `json:"message"`
	Image   Image  `json:"image"`
}

// RateResult response type
type RateResult struct {
	Message string `json:"message"`
	Rating  Rating `json:"rating"`
}

// MedianResult response type
type MedianResult struct {
	Median float64 `json:"median"`
}

// StatsResult response type
type StatsResult struct {
	LikeCount      int     `json:"likeCount"`
	DislikeCount   int     `json:"dislikeCount"`
	LikePercentage float64 `json:"likePercentage"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printImage(img Image) {
	o.printf("Image: %s\n", img.ID)
	o.printf("URL: %s\n", img.URL)
	o.printf("Prompt: %s\n", img.Prompt)
	likes, dislikes := 0, 0
	for _, r := range img.Ratings {
		if r.Score > 0 {
			likes++
		} else {
			dislikes++
		}
	}
	o.printf("Ratings: %d (+%d/-%d)\n", len(img.Ratings), likes, dislikes)
}

func (o *Output) printImagePage(p ImagePage) {
	o.printf("Page %d of %d (%d items)\n", p.CurrentPage, p.TotalPages, p.TotalCount)
	for _, img := range p.Items {
		o.printf("  %s  %-40s  %s\n", img.ID, truncate(img.Prompt, 40), img.URL)
	}
}

func (o *Output) printRating(r Rating) {
	verdict := "dislike"
	if r.Score > 0 {
		verdict = "like"
	}
	o.printf("Rating: %s on image %s (%s)\n", r.ID, r.ImageID, verdict)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
