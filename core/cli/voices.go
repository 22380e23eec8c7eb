package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/mudler/xlog"

	"github.com/qaidjoharj53/Voice-Clone-TTS/core/application"
	cliContext "github.com/qaidjoharj53/Voice-Clone-TTS/core/cli/context"
	"github.com/qaidjoharj53/Voice-Clone-TTS/core/config"
	"github.com/qaidjoharj53/Voice-Clone-TTS/core/schema"
	"github.com/qaidjoharj53/Voice-Clone-TTS/core/services"
)

type VoicesCMD struct {
	List  VoicesListCMD  `cmd:"" help:"List cloned voices held by the account"`
	Purge VoicesPurgeCMD `cmd:"" help:"Delete cloned voices held by the account"`
}

type VoicesListCMD struct {
	ProviderFlags `embed:""`

	JSON bool `help:"Print JSON instead of a table"`
}

type VoicesPurgeCMD struct {
	ProviderFlags `embed:""`

	OlderThan time.Duration `help:"Only delete clones created by this service longer ago than this; by default every clone is deleted"`
}

func (p *ProviderFlags) newCLIApplication() (*application.Application, error) {
	opts, err := p.appOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts,
		config.WithUploadDir(filepath.Join(os.TempDir(), "voice-clone-tts", "cli-uploads")),
		config.DisableMetricsEndpoint,
	)
	return application.New(opts...)
}

func (l *VoicesListCMD) Run(ctx *cliContext.Context) error {
	app, err := l.newCLIApplication()
	if err != nil {
		return err
	}
	defer app.Stop(context.Background())

	voices, err := app.VoiceCloneService().ListClones(context.Background())
	if err != nil {
		return err
	}

	out := make([]schema.ClonedVoice, 0, len(voices))
	for _, v := range voices {
		out = append(out, schema.ClonedVoice{ID: v.ID, Name: v.Name, Engine: v.Engine})
	}

	if l.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tENGINE\tCREATED")
	for _, v := range out {
		created := "-"
		if t, ok := services.CloneCreatedAt(v.Name); ok {
			created = t.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.ID, v.Name, v.Engine, created)
	}
	return w.Flush()
}

func (p *VoicesPurgeCMD) Run(ctx *cliContext.Context) error {
	app, err := p.newCLIApplication()
	if err != nil {
		return err
	}
	defer app.Stop(context.Background())

	var deleted int
	if p.OlderThan > 0 {
		sweeper := services.NewCloneSweeper(app.Provider(), app.SlotGuard(), p.OlderThan)
		deleted, err = sweeper.Sweep(context.Background())
	} else {
		deleted, err = app.VoiceCloneService().EvictAll(context.Background())
	}
	if err != nil {
		xlog.Error("purge stopped early", "deleted", deleted, "error", err)
		return err
	}
	fmt.Printf("Deleted %d cloned voice(s)\n", deleted)
	return nil
}
