package repository

import "errors"

var (
	// ErrStaffExists возвращается при попытке создать сотрудника с уже существующим логином.
	ErrStaffExists = errors.New("staff already exists")
	// ErrStaffNotFound возвращается, если сотрудник не найден.
	ErrStaffNotFound = errors.New("staff not found")
	// ErrNotFound возвращается, если запись не найдена.
	ErrNotFound = errors.New("record not found")
	// ErrNoRowsAffected возвращается, если обновление не затронуло ни одной строки.
	// Обычно это означает отсутствие прав на запись.
	ErrNoRowsAffected = errors.New("no rows affected")
	// ErrSnackUnavailable возвращается при продаже неактивной или чужой позиции меню.
	ErrSnackUnavailable = errors.New("snack is not available")
)
