package usecase

import (
	"github.com/claimsportal/claimgate/pkg/domain/interfaces"
)

type UseCases struct {
	repo    interfaces.Repository
	api     interfaces.ClaimsAPI
	archive interfaces.ExportArchive
	Session SessionUseCaseInterface
	Claim   *ClaimUseCase
}

type Option func(*UseCases)

func WithSession(session SessionUseCaseInterface) Option {
	return func(uc *UseCases) {
		uc.Session = session
	}
}

func WithArchive(archive interfaces.ExportArchive) Option {
	return func(uc *UseCases) {
		uc.archive = archive
	}
}

func New(repo interfaces.Repository, api interfaces.ClaimsAPI, opts ...Option) *UseCases {
	uc := &UseCases{
		repo: repo,
		api:  api,
	}

	for _, opt := range opts {
		opt(uc)
	}

	var claimOpts []ClaimOption
	if uc.archive != nil {
		claimOpts = append(claimOpts, WithExportArchive(uc.archive))
	}
	uc.Claim = NewClaimUseCase(api, claimOpts...)

	return uc
}
