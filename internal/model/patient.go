package model

// Patient is the slice of the patient record the scheduler needs for cell
// labels and notifications. The patient module proper lives elsewhere.
type Patient struct {
	ID    int64  `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Phone string `db:"phone" json:"phone,omitempty"`
	Email string `db:"email" json:"email,omitempty"`
}
