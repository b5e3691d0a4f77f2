package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/hyperengineering/postrater/internal/types"
	"github.com/hyperengineering/postrater/internal/validation"
)

// rawAssessment mirrors types.Assessment with pointer fields so that
// missing keys can be told apart from zero values.
type rawAssessment struct {
	Rating                   *float64  `json:"rating"`
	Justification            *string   `json:"justification"`
	SentimentLabel           *string   `json:"sentimentAnalysisLabel"`
	SentimentScore           *float64  `json:"sentimentAnalysisScore"`
	BiasScore                *float64  `json:"biasDetectionScore"`
	BiasDirection            *string   `json:"biasDetectionDirection"`
	OriginalityScore         *float64  `json:"originalityScore"`
	SimilarityScore          *float64  `json:"similarityScore"`
	ReadabilityFleschKincaid *float64  `json:"readabilityFleschKincaid"`
	ReadabilityGunningFog    *float64  `json:"readabilityGunningFog"`
	MainTopic                *string   `json:"mainTopic"`
	SecondaryTopics          *[]string `json:"secondaryTopics"`
}

// DecodeAssessment parses a model reply into a validated assessment.
// Surrounding markdown code fences are ignored. A reply that is not a
// single JSON object, or that repeats a key, is ErrMalformedResponse.
// Unknown, missing and mistyped fields, as well as schema violations, yield
// a *SchemaError.
func DecodeAssessment(content string) (*types.Assessment, error) {
	body := stripCodeFence(content)
	if body == "" {
		return nil, fmt.Errorf("%w: empty content", ErrMalformedResponse)
	}

	if err := checkObject(body); err != nil {
		return nil, err
	}

	var raw rawAssessment
	dec := json.NewDecoder(strings.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return nil, classifyDecodeError(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after JSON object", ErrMalformedResponse)
	}

	a, fieldErrs := raw.toAssessment()
	if len(fieldErrs) > 0 {
		return nil, &SchemaError{Errors: fieldErrs}
	}
	if errs := validation.ValidateAssessment(*a); len(errs) > 0 {
		return nil, &SchemaError{Errors: errs}
	}
	return a, nil
}

func (r rawAssessment) toAssessment() (*types.Assessment, []validation.ValidationError) {
	var c validation.Collector
	required := func(field string, present bool) {
		if !present {
			c.Add(&validation.ValidationError{Field: field, Message: "is required"})
		}
	}

	required("rating", r.Rating != nil)
	required("justification", r.Justification != nil)
	required("sentimentAnalysisLabel", r.SentimentLabel != nil)
	required("sentimentAnalysisScore", r.SentimentScore != nil)
	required("biasDetectionScore", r.BiasScore != nil)
	required("biasDetectionDirection", r.BiasDirection != nil)
	required("originalityScore", r.OriginalityScore != nil)
	required("similarityScore", r.SimilarityScore != nil)
	required("readabilityFleschKincaid", r.ReadabilityFleschKincaid != nil)
	required("readabilityGunningFog", r.ReadabilityGunningFog != nil)
	required("mainTopic", r.MainTopic != nil)
	required("secondaryTopics", r.SecondaryTopics != nil)

	if r.Rating != nil && *r.Rating != math.Trunc(*r.Rating) {
		c.Add(&validation.ValidationError{Field: "rating", Message: "must be an integer"})
	}
	if c.HasErrors() {
		return nil, c.Errors()
	}

	return &types.Assessment{
		Rating:                   int(*r.Rating),
		Justification:            *r.Justification,
		SentimentLabel:           types.SentimentLabel(*r.SentimentLabel),
		SentimentScore:           *r.SentimentScore,
		BiasScore:                *r.BiasScore,
		BiasDirection:            types.BiasDirection(*r.BiasDirection),
		OriginalityScore:         *r.OriginalityScore,
		SimilarityScore:          *r.SimilarityScore,
		ReadabilityFleschKincaid: *r.ReadabilityFleschKincaid,
		ReadabilityGunningFog:    *r.ReadabilityGunningFog,
		MainTopic:                *r.MainTopic,
		SecondaryTopics:          *r.SecondaryTopics,
	}, nil
}

// checkObject rejects replies whose top level is not a JSON object or that
// repeat a key. Syntax errors are left to the strict decode.
func checkObject(body string) error {
	dec := json.NewDecoder(strings.NewReader(body))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("%w: expected a JSON object", ErrMalformedResponse)
	}

	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil
		}
		key, ok := tok.(string)
		if !ok {
			return nil
		}
		if seen[key] {
			return fmt.Errorf("%w: duplicate key %q", ErrMalformedResponse, key)
		}
		seen[key] = true

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil
		}
	}
	return nil
}

func classifyDecodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			return fmt.Errorf("%w: expected a JSON object", ErrMalformedResponse)
		}
		return &SchemaError{Errors: []validation.ValidationError{{
			Field:   field,
			Message: fmt.Sprintf("must be of type %s, got %s", typeErr.Type, typeErr.Value),
		}}}
	}

	const unknownPrefix = "json: unknown field "
	if msg := err.Error(); strings.HasPrefix(msg, unknownPrefix) {
		return &SchemaError{Errors: []validation.ValidationError{{
			Field:   strings.Trim(strings.TrimPrefix(msg, unknownPrefix), `"`),
			Message: "is not allowed",
		}}}
	}

	return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	s = strings.TrimPrefix(s, "json")
	return strings.TrimSpace(s)
}
