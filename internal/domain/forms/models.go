package forms

import "time"

type Form struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Section struct {
	ID           string `json:"id"`
	FormID       string `json:"formId"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	SectionOrder int    `json:"sectionOrder"`
	VisibleTo    string `json:"visibleTo"`
	IsActive     bool   `json:"isActive"`
}

type Question struct {
	ID            string `json:"id"`
	SectionID     string `json:"sectionId"`
	Text          string `json:"text"`
	Description   string `json:"description"`
	ResponseType  string `json:"responseType"`
	Options       string `json:"options,omitempty"`
	IsRequired    bool   `json:"isRequired"`
	QuestionOrder int    `json:"questionOrder"`
	IsActive      bool   `json:"isActive"`
}

// FormDetail is a form with its sections and questions in display order.
type FormDetail struct {
	Form     Form            `json:"form"`
	Sections []SectionDetail `json:"sections"`
}

type SectionDetail struct {
	Section   Section    `json:"section"`
	Questions []Question `json:"questions"`
}
