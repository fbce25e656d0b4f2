package apiserver

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/retrieval-gateway/internal/business"
	"github.com/openkcm/retrieval-gateway/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"api-server",
		"Retrieval Gateway API server",
		"Retrieval Gateway API server hosts the document API and the authorization bridge.",
		buildInfo,
		cmdutils.RunAsService,
		business.Main,
	)
}
