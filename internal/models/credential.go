package models

// StudentCredential is a freshly generated plaintext credential pair. It is
// returned once for distribution and never persisted in this form.
type StudentCredential struct {
	StudentID  string `json:"student_id"`
	Name       string `json:"name"`
	RollNumber string `json:"roll_number,omitempty"`
	UID        string `json:"uid"`
	Password   string `json:"password,omitempty"`
}

// CredentialAssignment is what gets written for one student. A nil field keeps
// the stored value.
type CredentialAssignment struct {
	StudentID    string
	UID          *string
	PasswordHash *string
}
