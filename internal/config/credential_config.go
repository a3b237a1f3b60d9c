package config

type CredentialConfig interface {
	GetTokenLength() int
	GetSaltLength() int
	GetSessionIDLength() int
}

type Credentials struct {
	src *source
}

var _ CredentialConfig = Credentials{}

func (Credentials) GetTokenLength() int {
	return 32 // 32 bytes = 256 bits
}

func (Credentials) GetSaltLength() int {
	return 16
}

func (Credentials) GetSessionIDLength() int {
	return 32
}
