package domain

import "time"

// User là nhân viên vận hành. EmployeeID dạng ADM001/EMP001 theo vai trò.
type User struct {
	ID         int       `json:"id"`
	EmployeeID string    `json:"employee_id"`
	Username   string    `json:"username"`
	Password   string    `json:"-"`
	FullName   string    `json:"full_name"`
	Role       string    `json:"role"` // "admin" hoặc "operator"
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type RegisterUserDTO struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=6,max=100"`
	FullName string `json:"full_name"`
	Role     string `json:"role,omitempty"`
}

type LoginUserDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponseDTO struct {
	Token      string `json:"token"`
	UserID     int    `json:"user_id"`
	EmployeeID string `json:"employee_id"`
	Username   string `json:"username"`
	Role       string `json:"role"`
}
