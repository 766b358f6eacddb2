package forms

import (
	"context"
	"fmt"
	"strings"
)

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

func (s *Service) CreateForm(ctx context.Context, form Form) (string, error) {
	if strings.TrimSpace(form.Title) == "" {
		return "", fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	return s.store.CreateForm(ctx, form)
}

func (s *Service) UpdateForm(ctx context.Context, formID string, form Form) error {
	if strings.TrimSpace(form.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	return s.store.UpdateForm(ctx, formID, form)
}

func (s *Service) SetFormActive(ctx context.Context, formID string, active bool) error {
	return s.store.SetFormActive(ctx, formID, active)
}

func (s *Service) GetForm(ctx context.Context, formID string) (Form, error) {
	return s.store.GetForm(ctx, formID)
}

func (s *Service) ListForms(ctx context.Context, activeOnly bool) ([]Form, error) {
	return s.store.ListForms(ctx, activeOnly)
}

// FormDetail assembles the form with its sections and questions in display
// order, one query per level.
func (s *Service) FormDetail(ctx context.Context, formID string) (FormDetail, error) {
	form, err := s.store.GetForm(ctx, formID)
	if err != nil {
		return FormDetail{}, err
	}
	sections, err := s.store.ListSections(ctx, formID)
	if err != nil {
		return FormDetail{}, err
	}
	detail := FormDetail{Form: form}
	for _, section := range sections {
		questions, err := s.store.ListQuestions(ctx, section.ID)
		if err != nil {
			return FormDetail{}, err
		}
		detail.Sections = append(detail.Sections, SectionDetail{Section: section, Questions: questions})
	}
	return detail, nil
}

func (s *Service) CreateSection(ctx context.Context, section Section) (string, error) {
	if strings.TrimSpace(section.Title) == "" {
		return "", fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if section.VisibleTo == "" {
		section.VisibleTo = VisibleToBoth
	}
	if !ValidVisibility(section.VisibleTo) {
		return "", fmt.Errorf("%w: unknown visibility %q", ErrInvalidInput, section.VisibleTo)
	}
	return s.store.CreateSection(ctx, section)
}

func (s *Service) UpdateSection(ctx context.Context, sectionID string, section Section) error {
	if strings.TrimSpace(section.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if !ValidVisibility(section.VisibleTo) {
		return fmt.Errorf("%w: unknown visibility %q", ErrInvalidInput, section.VisibleTo)
	}
	return s.store.UpdateSection(ctx, sectionID, section)
}

func (s *Service) ListSections(ctx context.Context, formID string) ([]Section, error) {
	return s.store.ListSections(ctx, formID)
}

func (s *Service) ReorderSections(ctx context.Context, formID string, orderedIDs []string) error {
	if len(orderedIDs) == 0 {
		return fmt.Errorf("%w: empty order", ErrInvalidInput)
	}
	return s.store.ReorderSections(ctx, formID, orderedIDs)
}

func (s *Service) CreateQuestion(ctx context.Context, question Question) (string, error) {
	if strings.TrimSpace(question.Text) == "" {
		return "", fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	if !ValidResponseType(question.ResponseType) {
		return "", fmt.Errorf("%w: unknown response type %q", ErrInvalidInput, question.ResponseType)
	}
	return s.store.CreateQuestion(ctx, question)
}

func (s *Service) UpdateQuestion(ctx context.Context, questionID string, question Question) error {
	if strings.TrimSpace(question.Text) == "" {
		return fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	if !ValidResponseType(question.ResponseType) {
		return fmt.Errorf("%w: unknown response type %q", ErrInvalidInput, question.ResponseType)
	}
	return s.store.UpdateQuestion(ctx, questionID, question)
}

func (s *Service) ListQuestions(ctx context.Context, sectionID string) ([]Question, error) {
	return s.store.ListQuestions(ctx, sectionID)
}

func (s *Service) ReorderQuestions(ctx context.Context, sectionID string, orderedIDs []string) error {
	if len(orderedIDs) == 0 {
		return fmt.Errorf("%w: empty order", ErrInvalidInput)
	}
	return s.store.ReorderQuestions(ctx, sectionID, orderedIDs)
}
