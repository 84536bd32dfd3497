package dto

type RegisterProfileRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// RegisterProfileResponse carries the raw API key exactly once; only its
// hash is stored.
type RegisterProfileResponse struct {
	ProfileId string `json:"profile_id"`
	Email     string `json:"email"`
	ApiKey    string `json:"api_key"`
}

type TokenRequest struct {
	Email  string `json:"email" validate:"required,email"`
	ApiKey string `json:"api_key" validate:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}
