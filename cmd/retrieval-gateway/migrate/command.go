package migrate

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/retrieval-gateway/internal/business"
	"github.com/openkcm/retrieval-gateway/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"migrate",
		"Retrieval Gateway migrations",
		"Retrieval Gateway migrations apply the document schema to the database.",
		buildInfo,
		cmdutils.RunAsJob,
		business.MigrateMain,
	)
}
