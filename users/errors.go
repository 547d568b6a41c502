package users

import "fmt"

type (
	NotFound struct {
		Key string
	}

	LoginTaken struct {
		Login string
	}
)

func (n NotFound) Error() string {
	return fmt.Sprintf("user %v not found", n.Key)
}

func (l LoginTaken) Error() string {
	return fmt.Sprintf("login %v is already registered", l.Login)
}
