package domain

// LoginRequest — учетные данные оператора. Уходят на бэкенд
// form-encoded (username/password), выпуск токена — не наша зона.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse — ответ POST /api/v1/auth/login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

// BackendError — тело ошибки бэкенда в стиле FastAPI: {"detail": "..."}.
// Detail показываем оператору как есть (единственная видимая ошибка — логин).
type BackendError struct {
	Detail string `json:"detail"`
}
