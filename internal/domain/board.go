package domain

import "time"

// Board groups tasks; boards are read-only reference data.
type Board struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// User is an assignable person.
type User struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// FindUser returns the user with id from users.
func FindUser(users []User, id int) (User, bool) {
	for _, u := range users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}

// FindBoard returns the board with id from boards.
func FindBoard(boards []Board, id int) (Board, bool) {
	for _, b := range boards {
		if b.ID == id {
			return b, true
		}
	}
	return Board{}, false
}
