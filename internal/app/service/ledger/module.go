package ledger

import (
	"go.uber.org/fx"

	"github.com/nextdigitalzone/jobdesk/internal/app/service/matcher"
)

var Module = fx.Options(
	fx.Provide(
		New,
		func(m *matcher.Service) Eligibility { return m },
	),
)
