package forms

import "context"

type StoreAPI interface {
	CreateForm(ctx context.Context, form Form) (string, error)
	UpdateForm(ctx context.Context, formID string, form Form) error
	SetFormActive(ctx context.Context, formID string, active bool) error
	GetForm(ctx context.Context, formID string) (Form, error)
	ListForms(ctx context.Context, activeOnly bool) ([]Form, error)

	CreateSection(ctx context.Context, section Section) (string, error)
	UpdateSection(ctx context.Context, sectionID string, section Section) error
	GetSection(ctx context.Context, sectionID string) (Section, error)
	ListSections(ctx context.Context, formID string) ([]Section, error)
	ReorderSections(ctx context.Context, formID string, orderedIDs []string) error

	CreateQuestion(ctx context.Context, question Question) (string, error)
	UpdateQuestion(ctx context.Context, questionID string, question Question) error
	GetQuestion(ctx context.Context, questionID string) (Question, error)
	ListQuestions(ctx context.Context, sectionID string) ([]Question, error)
	ReorderQuestions(ctx context.Context, sectionID string, orderedIDs []string) error
}
