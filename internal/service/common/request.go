//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"github.com/oshokin/update-server/internal/config"
	pb "github.com/oshokin/update-server/internal/pb/v1"
)

// NewCheckRequest describes this installation to the update server.
// settings must already be validated so the client id and platform are set.
func NewCheckRequest(settings *config.Client, currentVersion string) *pb.CheckForUpdateRequest {
	return &pb.CheckForUpdateRequest{
		Application:    settings.Application,
		Channel:        settings.Channel,
		Platform:       settings.Platform,
		ClientId:       settings.ClientID,
		CurrentVersion: currentVersion,
	}
}
