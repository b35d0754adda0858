package questions

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/examflow/editorial/internal/errorz"
	"github.com/examflow/editorial/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// NewQuestion is the body for POST /questions.
type NewQuestion struct {
	Body          string  `json:"body" validate:"required,max=20000"`
	ImageURL      *string `json:"image_url" validate:"omitempty,url"`
	FileURL       *string `json:"file_url" validate:"omitempty,url"`
	OptionA       *string `json:"option_a" validate:"omitempty,max=2000"`
	OptionB       *string `json:"option_b" validate:"omitempty,max=2000"`
	OptionC       *string `json:"option_c" validate:"omitempty,max=2000"`
	OptionD       *string `json:"option_d" validate:"omitempty,max=2000"`
	OptionE       *string `json:"option_e" validate:"omitempty,max=2000"`
	CorrectAnswer string  `json:"correct_answer" validate:"required,oneof=A B C D E"`
	Difficulty    int     `json:"difficulty" validate:"required,min=1,max=5"`
	SubjectID     int64   `json:"subject_id" validate:"required,gt=0"`
}

func (n NewQuestion) content() models.Content {
	return models.Content{
		Body:          n.Body,
		ImageURL:      n.ImageURL,
		FileURL:       n.FileURL,
		OptionA:       n.OptionA,
		OptionB:       n.OptionB,
		OptionC:       n.OptionC,
		OptionD:       n.OptionD,
		OptionE:       n.OptionE,
		CorrectAnswer: n.CorrectAnswer,
		Difficulty:    n.Difficulty,
		SubjectID:     n.SubjectID,
	}
}

// ContentPatch is the body for PATCH /questions/:id. Nil fields are left unchanged.
// An empty string clears an optional field.
type ContentPatch struct {
	Body            *string `json:"body" validate:"omitempty,min=1,max=20000"`
	ImageURL        *string `json:"image_url" validate:"omitempty,url|len=0"`
	FileURL         *string `json:"file_url" validate:"omitempty,url|len=0"`
	OptionA         *string `json:"option_a" validate:"omitempty,max=2000"`
	OptionB         *string `json:"option_b" validate:"omitempty,max=2000"`
	OptionC         *string `json:"option_c" validate:"omitempty,max=2000"`
	OptionD         *string `json:"option_d" validate:"omitempty,max=2000"`
	OptionE         *string `json:"option_e" validate:"omitempty,max=2000"`
	CorrectAnswer   *string `json:"correct_answer" validate:"omitempty,oneof=A B C D E"`
	Difficulty      *int    `json:"difficulty" validate:"omitempty,min=1,max=5"`
	SubjectID       *int64  `json:"subject_id" validate:"omitempty,gt=0"`
	ExpectedVersion *int    `json:"expected_version" validate:"omitempty,min=1"`
}

// Empty reports whether the patch changes nothing.
func (p ContentPatch) Empty() bool {
	return p.Body == nil && p.ImageURL == nil && p.FileURL == nil &&
		p.OptionA == nil && p.OptionB == nil && p.OptionC == nil && p.OptionD == nil && p.OptionE == nil &&
		p.CorrectAnswer == nil && p.Difficulty == nil && p.SubjectID == nil
}

// Apply writes the patch onto c.
func (p ContentPatch) Apply(c *models.Content) {
	if p.Body != nil {
		c.Body = *p.Body
	}
	c.ImageURL = patchOptional(c.ImageURL, p.ImageURL)
	c.FileURL = patchOptional(c.FileURL, p.FileURL)
	c.OptionA = patchOptional(c.OptionA, p.OptionA)
	c.OptionB = patchOptional(c.OptionB, p.OptionB)
	c.OptionC = patchOptional(c.OptionC, p.OptionC)
	c.OptionD = patchOptional(c.OptionD, p.OptionD)
	c.OptionE = patchOptional(c.OptionE, p.OptionE)
	if p.CorrectAnswer != nil {
		c.CorrectAnswer = *p.CorrectAnswer
	}
	if p.Difficulty != nil {
		c.Difficulty = *p.Difficulty
	}
	if p.SubjectID != nil {
		c.SubjectID = *p.SubjectID
	}
}

// patchFrom builds a patch that overwrites every content field with c.
func patchFrom(c models.Content) ContentPatch {
	opt := func(v *string) *string {
		if v == nil {
			empty := ""
			return &empty
		}
		out := *v
		return &out
	}
	body, answer, difficulty, subject := c.Body, c.CorrectAnswer, c.Difficulty, c.SubjectID
	return ContentPatch{
		Body:          &body,
		ImageURL:      opt(c.ImageURL),
		FileURL:       opt(c.FileURL),
		OptionA:       opt(c.OptionA),
		OptionB:       opt(c.OptionB),
		OptionC:       opt(c.OptionC),
		OptionD:       opt(c.OptionD),
		OptionE:       opt(c.OptionE),
		CorrectAnswer: &answer,
		Difficulty:    &difficulty,
		SubjectID:     &subject,
	}
}

func patchOptional(cur, patch *string) *string {
	if patch == nil {
		return cur
	}
	if *patch == "" {
		return nil
	}
	v := *patch
	return &v
}

// validateStruct runs tag validation and converts failures into a field map.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
	}
	return errorz.NewValidation(fields)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of " + fe.Param()
	case "min", "gt":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "url", "url|len=0":
		return "must be a URL"
	}
	return "is invalid (" + fe.Tag() + ")"
}

// validateContent checks rules that span fields on the merged content.
func validateContent(c *models.Content) error {
	fields := map[string]string{}
	if strings.TrimSpace(c.Body) == "" {
		fields["body"] = "is required"
	}
	if opt := c.Option(c.CorrectAnswer); opt == nil || strings.TrimSpace(*opt) == "" {
		fields["correct_answer"] = "must reference a non-empty option"
	}
	filled := 0
	for _, l := range models.OptionLetters {
		if opt := c.Option(l); opt != nil && strings.TrimSpace(*opt) != "" {
			filled++
		}
	}
	if filled < 2 {
		fields["options"] = "at least two options are required"
	}
	if len(fields) > 0 {
		return errorz.NewValidation(fields)
	}
	return nil
}
