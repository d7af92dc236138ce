package commands

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ekisa-team/some/internal/config"
	"github.com/ekisa-team/some/internal/envvar"
	"github.com/ekisa-team/some/internal/pipeline"
	"github.com/ekisa-team/some/internal/rpc"
	"github.com/ekisa-team/some/internal/service"
)

var (
	serveConfig string
	serveModel  string
	serveDevice string
	servePort   int
	serveWatch  bool
	serveFetch  fetchFlags
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve inference over gRPC",
	Long: `Load a model and serve the some.v1.Inference gRPC service.

With --watch, the configuration file and checkpoint are watched and the
model is rebuilt when either changes. A failed rebuild keeps the previous
model serving. Remote checkpoints are downloaded once at startup and the
cached copy is the one watched.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVarP(&serveConfig, "config", "c", "config.yaml", "training configuration")
	f.StringVarP(&serveModel, "model", "m", "", "checkpoint path, hf:// or s3:// location")
	f.StringVarP(&serveDevice, "device", "d", os.Getenv(envvar.SomeDevice), "cpu, cuda or cuda:N (default: probe)")
	f.IntVarP(&servePort, "port", "p", defaultPort(), "gRPC port")
	f.BoolVarP(&serveWatch, "watch", "w", false, "reload on configuration or checkpoint change")
	serveFetch.register(f)
	_ = serveCmd.MarkFlagRequired("model")

	rootCmd.AddCommand(serveCmd)
}

func defaultPort() int {
	if p, err := strconv.Atoi(os.Getenv(envvar.SomeServerGRPCPort)); err == nil && p > 0 {
		return p
	}
	return rpc.DefaultGRPCPort
}

func runServe(cmd *cobra.Command, args []string) error {
	modelPath, err := serveFetch.fetch(cmd.Context(), serveModel)
	if err != nil {
		return err
	}

	manager := service.NewManager(pipeline.WithDevice(serveDevice))

	if serveWatch {
		w, err := manager.Watch(serveConfig, modelPath)
		if err != nil {
			return err
		}
		defer w.Close()
	} else {
		cfg, err := config.LoadAndValidate(serveConfig)
		if err != nil {
			return err
		}
		if err := manager.Load(cfg, modelPath); err != nil {
			return err
		}
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", servePort))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", servePort, err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", labelStyle.Render("Serving"), lis.Addr())
	return serveUntilSignal(rpc.NewServer(manager), lis, sigCh)
}

type stoppableServer interface {
	Serve(lis net.Listener) error
	Stop()
}

// serveUntilSignal runs srv until it fails or a signal arrives. The signal
// watcher has exited by the time it returns.
func serveUntilSignal(srv stoppableServer, lis net.Listener, sigCh <-chan os.Signal) error {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case sig := <-sigCh:
			slog.Info("Shutting down", "signal", sig.String())
			srv.Stop()
		case <-done:
		}
	}()

	err := srv.Serve(lis)
	close(done)
	wg.Wait()
	return err
}
