package validation

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/hyperengineering/postrater/internal/types"
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) String() string {
	return e.Field + ": " + e.Message
}

// Collector accumulates validation errors without failing on first.
type Collector struct {
	errors []ValidationError
}

// Add appends a validation error to the collector if non-nil.
func (c *Collector) Add(err *ValidationError) {
	if err != nil {
		c.errors = append(c.errors, *err)
	}
}

// HasErrors returns true if the collector has accumulated any errors.
func (c *Collector) HasErrors() bool {
	return len(c.errors) > 0
}

// Errors returns all accumulated validation errors.
func (c *Collector) Errors() []ValidationError {
	return c.errors
}

// ValidateUTF8 returns an error if the value is not valid UTF-8.
func ValidateUTF8(field, value string) *ValidationError {
	if !utf8.ValidString(value) {
		return &ValidationError{
			Field:   field,
			Message: "must be valid UTF-8",
		}
	}
	return nil
}

// ValidateNoNullBytes returns an error if the value contains null bytes.
func ValidateNoNullBytes(field, value string) *ValidationError {
	if strings.Contains(value, "\x00") {
		return &ValidationError{
			Field:   field,
			Message: "must not contain null bytes",
		}
	}
	return nil
}

// ValidateMaxLength returns an error if the value exceeds max runes.
func ValidateMaxLength(field, value string, max int) *ValidationError {
	if utf8.RuneCountInString(value) > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("exceeds maximum length of %d characters", max),
		}
	}
	return nil
}

// ValidateULID returns an error if the value is not a valid ULID format.
// ULIDs are 26 characters using Crockford Base32 (excludes I, L, O, U).
func ValidateULID(field, value string) *ValidationError {
	if len(value) != 26 {
		return &ValidationError{
			Field:   field,
			Message: "must be a valid ULID (26 characters)",
		}
	}

	const crockfordBase32 = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"
	for _, r := range value {
		upper := strings.ToUpper(string(r))
		if !strings.Contains(crockfordBase32, upper) {
			return &ValidationError{
				Field:   field,
				Message: "must be a valid ULID (invalid character)",
			}
		}
	}
	return nil
}

// ValidateRequired returns an error if the value is empty or whitespace-only.
func ValidateRequired(field, value string) *ValidationError {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{
			Field:   field,
			Message: "is required",
		}
	}
	return nil
}

// ValidateEnum returns an error if the value is not in the allowed list.
// Comparison is exact: case and spacing must match.
func ValidateEnum(field, value string, allowed []string) *ValidationError {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// ValidateRange returns an error if the value is outside [min, max].
func ValidateRange(field string, value, min, max float64) *ValidationError {
	if math.IsNaN(value) || value < min || value > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be between %.1f and %.1f", min, max),
		}
	}
	return nil
}

// ValidateFinite returns an error if the value is NaN or infinite.
func ValidateFinite(field string, value float64) *ValidationError {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return &ValidationError{
			Field:   field,
			Message: "must be a finite number",
		}
	}
	return nil
}

// ValidateCount returns an error if n is outside [min, max].
func ValidateCount(field string, n, min, max int) *ValidationError {
	if n < min || n > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must contain between %d and %d items", min, max),
		}
	}
	return nil
}

const (
	MinSecondaryTopics = 2
	MaxSecondaryTopics = 4
	MaxTitleLength     = 500
)

// ValidateAssessment checks a scorer assessment against the rating schema:
// numeric ranges, enum membership, required text and the secondary topic count.
func ValidateAssessment(a types.Assessment) []ValidationError {
	var c Collector

	c.Add(ValidateRange("rating", float64(a.Rating), 0, 100))
	c.Add(ValidateRequired("justification", a.Justification))
	c.Add(ValidateEnum("sentimentAnalysisLabel", string(a.SentimentLabel), sentimentValues()))
	c.Add(ValidateRange("sentimentAnalysisScore", a.SentimentScore, 0, 1))
	c.Add(ValidateRange("biasDetectionScore", a.BiasScore, 0, 1))
	c.Add(ValidateEnum("biasDetectionDirection", string(a.BiasDirection), biasValues()))
	c.Add(ValidateRange("originalityScore", a.OriginalityScore, 0, 1))
	c.Add(ValidateRange("similarityScore", a.SimilarityScore, 0, 1))
	c.Add(ValidateFinite("readabilityFleschKincaid", a.ReadabilityFleschKincaid))
	c.Add(ValidateFinite("readabilityGunningFog", a.ReadabilityGunningFog))
	c.Add(ValidateRequired("mainTopic", a.MainTopic))
	c.Add(ValidateCount("secondaryTopics", len(a.SecondaryTopics), MinSecondaryTopics, MaxSecondaryTopics))
	for i, topic := range a.SecondaryTopics {
		c.Add(ValidateRequired(fmt.Sprintf("secondaryTopics[%d]", i), topic))
	}

	return c.Errors()
}

// ValidateNewPost checks a post before it is inserted.
func ValidateNewPost(index int, p types.NewPost) []ValidationError {
	var c Collector
	prefix := fmt.Sprintf("posts[%d]", index)

	c.Add(ValidateRequired(prefix+".title", p.Title))
	c.Add(ValidateMaxLength(prefix+".title", p.Title, MaxTitleLength))
	c.Add(ValidateUTF8(prefix+".title", p.Title))
	c.Add(ValidateUTF8(prefix+".content", p.Content))
	c.Add(ValidateNoNullBytes(prefix+".content", p.Content))
	c.Add(ValidateRequired(prefix+".author_address", p.AuthorAddress))

	return c.Errors()
}

func sentimentValues() []string {
	out := make([]string, len(types.SentimentLabels))
	for i, l := range types.SentimentLabels {
		out[i] = string(l)
	}
	return out
}

func biasValues() []string {
	out := make([]string, len(types.BiasDirections))
	for i, d := range types.BiasDirections {
		out[i] = string(d)
	}
	return out
}
