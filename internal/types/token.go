package types

type (
	TokenRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	TokenPair struct {
		Access  string `json:"access"  validate:"required"`
		Refresh string `json:"refresh" validate:"required"`
	}

	RefreshRequest struct {
		Refresh string `json:"refresh" validate:"required"`
	}

	AccessToken struct {
		Access string `json:"access" validate:"required"`
	}

	ResetCredentialsRequest struct {
		OldPassword string `json:"old_password" validate:"required"`
		NewPassword string `json:"new_password" validate:"required"`
	}
)
