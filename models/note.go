package models

import (
	"time"

	"gorm.io/gorm"
)

// Note records one uploaded document and the user who owns it. FilePath is
// the stored location relative to the working directory (e.g.
// "uploads/notes_1.pdf") and is globally unique: the unique index also turns
// a lost filename-collision race into an insert error instead of two rows
// pointing at one file.
type Note struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"index;not null" json:"user_id"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	AcademicYear string    `gorm:"size:32;not null" json:"academic_year"`
	Semester     string    `gorm:"size:32;not null" json:"semester"`
	SubjectCode  string    `gorm:"size:64;not null" json:"subject_code"`
	NotesType    string    `gorm:"size:64;not null" json:"notes_type"`
	Description  string    `gorm:"type:text" json:"description"`
	FilePath     string    `gorm:"size:512;not null;uniqueIndex" json:"-"`
	UploadedAt   time.Time `json:"uploaded_at"`
	User         User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// BeforeCreate stamps the upload time when the caller did not.
func (n *Note) BeforeCreate(tx *gorm.DB) error {
	if n.UploadedAt.IsZero() {
		n.UploadedAt = time.Now()
	}
	return nil
}
