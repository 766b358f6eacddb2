package forms

const (
	ResponseTypeText     = "text"
	ResponseTypeTextarea = "textarea"
	ResponseTypeRating5  = "rating_5"
	ResponseTypeRating10 = "rating_10"
	ResponseTypeSelect   = "select"
	ResponseTypeCheckbox = "checkbox"
)

const (
	VisibleToEmployee = "employee"
	VisibleToManager  = "manager"
	VisibleToBoth     = "both"
)

var responseTypes = map[string]bool{
	ResponseTypeText:     true,
	ResponseTypeTextarea: true,
	ResponseTypeRating5:  true,
	ResponseTypeRating10: true,
	ResponseTypeSelect:   true,
	ResponseTypeCheckbox: true,
}

var visibilities = map[string]bool{
	VisibleToEmployee: true,
	VisibleToManager:  true,
	VisibleToBoth:     true,
}

func ValidResponseType(rt string) bool { return responseTypes[rt] }

func ValidVisibility(v string) bool { return visibilities[v] }

// RatingMax returns the maximum value of a rating response type, or 0 when
// the type is not a rating.
func RatingMax(rt string) int {
	switch rt {
	case ResponseTypeRating5:
		return 5
	case ResponseTypeRating10:
		return 10
	default:
		return 0
	}
}
