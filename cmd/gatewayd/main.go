// gatewayd runs one gateway-plane process: the peer overlay, the
// distance-vector routing table, node-info gossip, the local/peer routers,
// and the PRO-mode gRPC surface attached fronts dial against.
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

	"github.com/ppcmesh/fabric/internal/front/health"
	"github.com/ppcmesh/fabric/internal/gatewaycore"
	"github.com/ppcmesh/fabric/internal/localrouter"
	"github.com/ppcmesh/fabric/internal/peerservice"
	"github.com/ppcmesh/fabric/internal/rpc"
	"github.com/ppcmesh/fabric/pkg/config"
	"github.com/ppcmesh/fabric/pkg/metrics"
	"github.com/ppcmesh/fabric/pkg/persist"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	configPath string
)

func main() {
	root := &cobra.Command{
		Use:   "gatewayd",
		Short: "gatewayd runs one gateway of the privacy-computation message fabric",
		RunE:  runGateway,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/fabric/gatewayd.yaml", "path to gateway YAML config")
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("gatewayd", version)
		},
	})
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader().LoadGatewayFile(configPath)
	if err != nil {
		return err
	}

	log, err := persist.NewLogger(cfg.Logging.File)
	if err != nil {
		return fmt.Errorf("open gateway log: %w", err)
	}
	defer log.Close()

	peers, err := config.LoadPeerFile(cfg.PeerFile)
	if err != nil {
		return fmt.Errorf("load peer file: %w", err)
	}

	var reg *prometheus.Registry
	var met *metrics.Gateway
	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		met = metrics.NewGateway(reg)
		metricsSrv = metrics.Serve(cfg.Metrics.Listen, reg)
	}

	registry := localrouter.NewRegistry(cfg.GatewayID, cfg.Agency)
	holding := localrouter.NewHoldingCache(cfg.HoldingQueueTTL())
	dispatcher := localrouter.NewDispatcher(registry, holding)

	gwCfg := gatewaycore.Config{
		SelfGatewayID:       cfg.GatewayID,
		UnreachableDistance: cfg.UnreachableDistance,
		RouterSyncPeriod:    cfg.RouterSyncPeriod(),
		NodeInfoSyncPeriod:  cfg.NodeInfoSyncPeriod(),
		ForwardTimeout:      cfg.ForwardTimeout(),
	}
	gw := gatewaycore.New(gwCfg, log, met, dispatcher)

	listenAddr := net.JoinHostPort(cfg.ListenIP, fmt.Sprint(cfg.ListenPort))
	svc, err := peerservice.New(cfg.GatewayID, listenAddr, uint32(cfg.MaxAllowedMsgSize), cfg.ReconnectPeriod(), gw.HandleInbound, log)
	if err != nil {
		return fmt.Errorf("start peer service: %w", err)
	}
	gw.AttachPeerService(svc)
	svc.SetEndpoints(peers)

	air := rpc.NewAirGatewayClient(gw, registry, cfg.Agency)
	var dialOpts []grpc.DialOption
	var serverCreds credentials.TransportCredentials
	if tlsCfg, terr := cfg.TLS.Load(); terr != nil {
		return fmt.Errorf("load gateway tls material: %w", terr)
	} else if tlsCfg != nil {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(credentials.NewTLS(tlsCfg)))
		serverCreds = credentials.NewTLS(tlsCfg)
	} else {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	checker := health.NewChecker(cfg.HealthCheckPeriod(), log)
	checker.Start()
	defer checker.Stop()

	gwServer := rpc.NewGatewayServer(air, checker, dialOpts...)

	var grpcOpts []grpc.ServerOption
	if serverCreds != nil {
		grpcOpts = append(grpcOpts, grpc.Creds(serverCreds))
	}
	grpcSrv := grpc.NewServer(grpcOpts...)
	rpc.RegisterGatewayServer(grpcSrv, gwServer)
	rpcListener, err := net.Listen("tcp", cfg.RPCListen)
	if err != nil {
		return fmt.Errorf("listen rpc: %w", err)
	}
	go func() {
		if err := grpcSrv.Serve(rpcListener); err != nil {
			log.Printf("WARN: gateway rpc server stopped: %v", err)
		}
	}()

	svc.Start()
	gw.Start()
	log.Printf("INFO: gatewayd %s listening peer=%s rpc=%s agency=%s", cfg.GatewayID, listenAddr, cfg.RPCListen, cfg.Agency)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("INFO: gatewayd shutting down")
	grpcSrv.GracefulStop()
	if err := svc.Stop(); err != nil {
		log.Printf("WARN: peer service stop: %v", err)
	}
	if err := gw.Stop(); err != nil {
		log.Printf("WARN: gateway stop: %v", err)
	}
	if metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		metrics.Shutdown(ctx, metricsSrv)
	}
	return nil
}
