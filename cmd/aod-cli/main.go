package main

import (
	"context"

	"aod-backend/cmd/aod-cli/commands"
	"aod-backend/lib/telemetry"
)

func main() {
	telemetry.InitSlog(false)
	telemetry.SetupFromEnv(context.Background(), "aod-cli")
	commands.ExecuteContext(context.Background())
}
