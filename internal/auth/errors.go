package auth

import "errors"

// ErrNoToken — пользователь не авторизован, запрос не отправлялся.
var ErrNoToken = errors.New("not authenticated")
