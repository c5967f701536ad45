// Package prompt collects a profile with line-by-line terminal prompts, for
// terminals where the full-screen interface is unavailable.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/ashureev/japa-advisor/internal/domain"
)

// ErrAborted is returned when the user interrupts a prompt.
var ErrAborted = errors.New("prompt aborted")

// InputConfig configures a basic text input prompt.
type InputConfig struct {
	Message   string
	Default   string
	Help      string
	Validator func(string) error
}

// Driver abstracts the terminal prompt implementation so the flow can be
// tested without a real terminal.
type Driver interface {
	Input(ctx context.Context, cfg InputConfig) (string, error)
}

type surveyDriver struct{}

// NewSurveyDriver returns a Driver backed by survey.
func NewSurveyDriver() Driver {
	return surveyDriver{}
}

func (surveyDriver) Input(ctx context.Context, cfg InputConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var out string
	p := &survey.Input{
		Message: cfg.Message,
		Help:    cfg.Help,
		Default: cfg.Default,
	}
	var opts []survey.AskOpt
	if cfg.Validator != nil {
		opts = append(opts, survey.WithValidator(func(ans interface{}) error {
			s, _ := ans.(string)
			return cfg.Validator(s)
		}))
	}
	if err := survey.AskOne(p, &out, opts...); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func translateSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}

var help = map[domain.Field]string{
	domain.FieldFullName:       "As it appears on your passport.",
	domain.FieldDegree:         "Highest completed degree, e.g. BSc Computer Science.",
	domain.FieldWorkExperience: "Years and kind of work, e.g. 2 years as a backend engineer.",
	domain.FieldTargetCountry:  "Where you want to move, e.g. Canada, UK, USA or Germany.",
	domain.FieldGoal:           "What you want to do there, e.g. MSc in AI or a skilled worker job.",
}

func required(label string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", label)
		}
		return nil
	}
}

// AskProfile prompts for every profile field in form order. defaults
// prefills answers, e.g. from a previous attempt.
func AskProfile(ctx context.Context, d Driver, defaults domain.ProfileInput) (domain.ProfileInput, error) {
	var p domain.ProfileInput
	for _, f := range domain.Fields {
		answer, err := d.Input(ctx, InputConfig{
			Message:   f.Label() + ":",
			Default:   defaults.Get(f),
			Help:      help[f],
			Validator: required(f.Label()),
		})
		if err != nil {
			return p, err
		}
		if p, err = p.With(f, answer); err != nil {
			return p, err
		}
	}
	return p, nil
}

// Confirm asks a yes/no question through survey.
func Confirm(ctx context.Context, message string, def bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	out := def
	if err := survey.AskOne(&survey.Confirm{Message: message, Default: def}, &out); err != nil {
		return false, translateSurveyErr(err)
	}
	return out, nil
}
