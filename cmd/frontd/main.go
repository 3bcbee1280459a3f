// frontd runs one computation node's front in PRO mode: it dials its
// gateway's gRPC surface, serves the inbound push endpoint the gateway
// calls to deliver messages, and keeps itself registered with keep-alive.
//
// AIR mode (in-process front co-located with its gateway) has no
// standalone binary: embed internal/front and internal/gatewaycore
// directly in a Go program instead, per §6 ("in AIR mode these are local
// method calls").
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/ppcmesh/fabric/internal/front"
	"github.com/ppcmesh/fabric/internal/front/keepalive"
	"github.com/ppcmesh/fabric/internal/nodeinfo"
	"github.com/ppcmesh/fabric/internal/rpc"
	"github.com/ppcmesh/fabric/pkg/config"
	"github.com/ppcmesh/fabric/pkg/metrics"
	"github.com/ppcmesh/fabric/pkg/persist"

	"github.com/spf13/cobra"
)

var (
	version    = "dev"
	configPath string
)

func main() {
	root := &cobra.Command{
		Use:   "frontd",
		Short: "frontd runs one computation node's front in PRO mode",
		RunE:  runFront,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/fabric/frontd.yaml", "path to front YAML config")
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("frontd", version)
		},
	})
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runFront(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader().LoadFrontFile(configPath)
	if err != nil {
		return err
	}
	if cfg.Mode != "pro" {
		return fmt.Errorf("frontd only runs PRO-mode fronts; embed internal/front directly for AIR mode")
	}

	log, err := persist.NewLogger(cfg.Logging.File)
	if err != nil {
		return fmt.Errorf("open front log: %w", err)
	}
	defer log.Close()

	var reg *prometheus.Registry
	var met *metrics.Front
	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		met = metrics.NewFront(reg)
		metricsSrv = metrics.Serve(cfg.Metrics.Listen, reg)
	}

	var dialOpts []grpc.DialOption
	var serverCreds credentials.TransportCredentials
	if tlsCfg, terr := cfg.TLS.Load(); terr != nil {
		return fmt.Errorf("load front tls material: %w", terr)
	} else if tlsCfg != nil {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(credentials.NewTLS(tlsCfg)))
		serverCreds = credentials.NewTLS(tlsCfg)
	} else {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.Dial(cfg.GatewayGrpcTarget, dialOpts...)
	if err != nil {
		return fmt.Errorf("dial gateway %s: %w", cfg.GatewayGrpcTarget, err)
	}
	defer conn.Close()

	gatewayClient := rpc.NewProGatewayClient(conn, cfg.SelfEndpoint)
	f := front.New(cfg.NodeID, cfg.Agency, gatewayClient, log, met)

	var grpcOpts []grpc.ServerOption
	if serverCreds != nil {
		grpcOpts = append(grpcOpts, grpc.Creds(serverCreds))
	}
	grpcSrv := grpc.NewServer(grpcOpts...)
	rpc.RegisterFrontServer(grpcSrv, rpc.NewFrontServer(f))
	listener, err := net.Listen("tcp", cfg.SelfEndpoint)
	if err != nil {
		return fmt.Errorf("listen self endpoint %s: %w", cfg.SelfEndpoint, err)
	}
	go func() {
		if err := grpcSrv.Serve(listener); err != nil {
			log.Printf("WARN: front rpc server stopped: %v", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	self := nodeinfo.Node{NodeID: cfg.NodeID, Agency: cfg.Agency, Components: cfg.Components}
	if err := gatewayClient.RegisterNodeInfo(ctx, self); err != nil {
		cancel()
		return fmt.Errorf("register with gateway: %w", err)
	}
	cancel()
	for _, c := range cfg.Components {
		cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := gatewayClient.RegisterTopic(cctx, cfg.NodeID, c)
		ccancel()
		if err != nil {
			log.Printf("WARN: register component %s failed: %v", c, err)
		}
	}

	keepAlive := keepalive.New(gatewayClient, self, cfg.KeepAlivePeriod(), log)
	keepAlive.Start()
	defer keepAlive.Stop()

	log.Printf("INFO: frontd %s/%s listening self=%s gateway=%s", cfg.Agency, cfg.NodeID, cfg.SelfEndpoint, cfg.GatewayGrpcTarget)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("INFO: frontd shutting down")
	unregCtx, unregCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := gatewayClient.UnRegisterNodeInfo(unregCtx, cfg.NodeID); err != nil {
		log.Printf("WARN: unregister from gateway: %v", err)
	}
	unregCancel()
	grpcSrv.GracefulStop()
	if metricsSrv != nil {
		mctx, mcancel := context.WithTimeout(context.Background(), 5*time.Second)
		metrics.Shutdown(mctx, metricsSrv)
		mcancel()
	}
	return nil
}
