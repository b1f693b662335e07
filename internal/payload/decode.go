package payload

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/ZanzyTHEbar/repolens/internal/errors"
)

// The wire schema uses pointers so that an absent field and a zero value
// are distinguishable during validation.
type wirePayload struct {
	User     *wireUser     `json:"user" validate:"required"`
	Scores   *wireScores   `json:"scores" validate:"required"`
	Analysis *wireAnalysis `json:"analysis" validate:"required"`
}

type wireUser struct {
	Login     *string `json:"login" validate:"required"`
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatar_url"`
	Bio       *string `json:"bio"`
	Location  *string `json:"location"`
}

type wireScores struct {
	TechnicalDepth  *float64 `json:"technical_depth" validate:"required"`
	Consistency     *float64 `json:"consistency" validate:"required"`
	Impact          *float64 `json:"impact" validate:"required"`
	FirstImpression *float64 `json:"first_impression" validate:"required"`
	RecruiterScore  *float64 `json:"recruiter_score" validate:"required"`
	PortfolioScore  *float64 `json:"portfolio_score" validate:"required"`
}

type wireAnalysis struct {
	Verdict         *string  `json:"verdict" validate:"required"`
	PersonalityType *string  `json:"personality_type" validate:"required"`
	Strengths       []string `json:"strengths" validate:"required"`
	RedFlags        []string `json:"red_flags" validate:"required"`
	Roadmap         []string `json:"roadmap" validate:"required,len=5"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func schemaValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Decode parses and validates a success body from the analysis backend.
// Every failure is a payload AppError naming the offending fields.
func Decode(body []byte) (*AnalysisPayload, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.NewPayloadError("analysis result was empty", nil)
	}

	var wire wirePayload
	if err := json.Unmarshal(body, &wire); err != nil {
		var typeErr *json.UnmarshalTypeError
		if stderrors.As(err, &typeErr) && typeErr.Field != "" {
			return nil, errors.NewPayloadError(
				fmt.Sprintf("analysis result has a mistyped field: %s", typeErr.Field), err)
		}
		return nil, errors.NewPayloadError("analysis result is not valid JSON", err)
	}

	if err := schemaValidator().Struct(&wire); err != nil {
		return nil, errors.NewPayloadError(describeValidation(err), err)
	}

	return wire.toPayload(), nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return "analysis result failed validation"
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		ns := fe.Namespace()
		// Drop the root struct name.
		if i := strings.Index(ns, "."); i >= 0 {
			ns = ns[i+1:]
		}
		if fe.Tag() == "len" {
			ns = fmt.Sprintf("%s (expected %s entries)", ns, fe.Param())
		}
		fields = append(fields, ns)
	}

	return "analysis result is incomplete: missing or invalid " + strings.Join(fields, ", ")
}

func (w *wirePayload) toPayload() *AnalysisPayload {
	return &AnalysisPayload{
		User: User{
			Login:     *w.User.Login,
			Name:      deref(w.User.Name),
			AvatarURL: deref(w.User.AvatarURL),
			Bio:       deref(w.User.Bio),
			Location:  deref(w.User.Location),
		},
		Scores: Scores{
			TechnicalDepth:  round(*w.Scores.TechnicalDepth),
			Consistency:     round(*w.Scores.Consistency),
			Impact:          round(*w.Scores.Impact),
			FirstImpression: round(*w.Scores.FirstImpression),
			RecruiterScore:  round(*w.Scores.RecruiterScore),
			PortfolioScore:  round(*w.Scores.PortfolioScore),
		},
		Analysis: Analysis{
			Verdict:         Verdict(*w.Analysis.Verdict),
			PersonalityType: *w.Analysis.PersonalityType,
			Strengths:       w.Analysis.Strengths,
			RedFlags:        w.Analysis.RedFlags,
			Roadmap:         w.Analysis.Roadmap,
		},
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// round saturates at the int32 range so huge scores stay huge after conversion
func round(f float64) int {
	switch {
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	}
	return int(math.Round(f))
}
