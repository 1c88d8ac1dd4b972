package model

type UserRole string

const (
	Student UserRole = "student"
	Faculty UserRole = "faculty"
	Admin   UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case Student, Faculty, Admin:
		return true
	}
	return false
}

// swagger:model User
type User struct {
	BaseModel
	SchoolID  string   `gorm:"size:50;uniqueIndex;not null" json:"schoolId"`
	FullName  string   `gorm:"size:100;not null" json:"fullName"`
	Password  string   `gorm:"size:255;not null" json:"-"`
	Role      UserRole `gorm:"type:varchar(20);not null;index" json:"role"`
	YearLevel *int     `json:"yearLevel,omitempty"` // 仅学生
	Section   *string  `gorm:"size:10" json:"section,omitempty"`
}

func (User) TableName() string {
	return "users"
}
