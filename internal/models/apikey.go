package models

// APIKeyCredential is an issued API key with its secret
type APIKeyCredential struct {
	Key    string `json:"api_key"`
	Secret string `json:"api_secret"`
}
