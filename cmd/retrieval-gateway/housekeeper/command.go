package housekeeper

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/retrieval-gateway/internal/business"
	"github.com/openkcm/retrieval-gateway/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"housekeeper",
		"Retrieval Gateway housekeeping job",
		"Retrieval Gateway housekeeping job sweeps expired authorization flows.",
		buildInfo,
		cmdutils.RunAsService,
		business.HousekeeperMain,
	)
}
