package provision

import (
	"context"
	"fmt"

	"github.com/umapps/aci-deploy/internal/message"
	"github.com/umapps/aci-deploy/internal/pipeline"
)

// Authenticate makes sure the az CLI has an active session, then logs in to the registry. The
// registry login is best effort: on a first run the registry does not exist yet.
func (p *Provisioner) Authenticate(ctx context.Context) (pipeline.StepResult, error) {
	account, loggedIn, err := p.provider.EnsureLoggedIn(ctx)
	if err != nil {
		return pipeline.StepResult{}, fmt.Errorf("failed to establish azure session: %w", err)
	}
	if loggedIn {
		message.Info("Logged in to subscription '%s'", account.Name)
	}

	user, err := p.provider.GetCallingUserId(ctx)
	if err != nil {
		message.Warning("Could not resolve the signed-in identity: %v", err)
		user = account.User.Name
	} else {
		message.Info("Signed in as %s", user)
	}

	if err := p.provider.RegistryLogin(ctx, p.cfg.RegistryName()); err != nil {
		message.Warning("Registry login failed, will retry once the registry is ensured: %v", err)
	}

	return pipeline.StepResult{
		Message:    fmt.Sprintf("authenticated as %s in subscription '%s'", user, account.Id),
		Identifier: account.Id,
	}, nil
}
