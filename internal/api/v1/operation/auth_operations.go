package operation

import "storefront/internal/api/v1/dto"

type SignInInput struct {
	Body dto.SignInDTO `json:"body"`
}

type SignUpInput struct {
	Body dto.SignUpDTO `json:"body"`
}

type AuthSessionOutput struct {
	Body dto.AuthSessionDTO `json:"body"`
}

type GetSessionInput struct{}

type GetSessionOutput struct {
	Body dto.SessionDTO `json:"body"`
}
