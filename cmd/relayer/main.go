// Command relayer runs the transaction relay fan-out engine: it ingests
// signed transaction packets, authenticates subscribing validators via
// challenge/response, filters against a compliance denylist, and fans
// packets out to the validators leading the next few slots.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/blockrelay/relayer/internal/auth"
	"github.com/blockrelay/relayer/internal/blockengine"
	"github.com/blockrelay/relayer/internal/decode"
	"github.com/blockrelay/relayer/internal/denylist"
	"github.com/blockrelay/relayer/internal/forward"
	"github.com/blockrelay/relayer/internal/health"
	"github.com/blockrelay/relayer/internal/ingest"
	"github.com/blockrelay/relayer/internal/monitor"
	"github.com/blockrelay/relayer/internal/relayer"
	"github.com/blockrelay/relayer/internal/rpcserver"
	"github.com/blockrelay/relayer/internal/runtime"
	"github.com/blockrelay/relayer/internal/schedulecache"
	"github.com/blockrelay/relayer/internal/selector"
	"github.com/blockrelay/relayer/internal/stakes"
	"github.com/blockrelay/relayer/internal/tablecache"
	"github.com/blockrelay/relayer/internal/tpuconfig"
	"github.com/blockrelay/relayer/internal/types"
	"github.com/blockrelay/relayer/internal/upstream"
	"github.com/blockrelay/relayer/shared/fileutil"
	"github.com/blockrelay/relayer/shared/logutil"
)

var log = logrus.WithField("prefix", "main")

func main() {
	app := cli.NewApp()
	app.Name = "relayer"
	app.Usage = "transaction relay fan-out engine"
	app.Flags = appFlags
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx *cli.Context) error {
	level, err := logrus.ParseLevel(ctx.GlobalString(verbosityFlag.Name))
	if err != nil {
		return err
	}
	logrus.SetLevel(level)

	if logFile := ctx.GlobalString(logFileFlag.Name); logFile != "" {
		if err := logutil.ConfigurePersistentLogging(logFile); err != nil {
			return err
		}
	}

	node, err := newRelayerNode(ctx)
	if err != nil {
		return err
	}
	node.Start()
	return nil
}

// relayerNode owns the ServiceRegistry and the signal-driven shutdown
// sequence, mirroring validator/node/node.go's ValidatorClient.
type relayerNode struct {
	services *runtime.ServiceRegistry
	lock     sync.RWMutex
	stop     chan struct{}
}

func newRelayerNode(cliCtx *cli.Context) (*relayerNode, error) {
	registry := runtime.NewServiceRegistry()
	node := &relayerNode{services: registry, stop: make(chan struct{})}

	keyPath, err := fileutil.ExpandPath(cliCtx.GlobalString(rsaKeyPathFlag.Name))
	if err != nil {
		return nil, err
	}
	signingKey, err := loadSigningKey(
		keyPath,
		cliCtx.GlobalString(rsaKeyPassphraseFlag.Name),
		cliCtx.GlobalString(rsaKeyPassphraseBcryptHashFlag.Name),
	)
	if err != nil {
		return nil, err
	}

	deniedAddrs, err := parseDenylist(cliCtx.GlobalString(denylistFlag.Name))
	if err != nil {
		return nil, err
	}
	tpuPool, err := parseTpuPool(cliCtx.GlobalString(tpuPoolFlag.Name))
	if err != nil {
		return nil, err
	}

	client := upstream.New("primary", cliCtx.GlobalString(upstreamURLFlag.Name))
	sel := selector.New([]selector.Source{{Name: client.Name, Client: client, Subscribe: client.Subscribe}})

	schedule := schedulecache.New(client)
	tables := tablecache.New(client, decode.AddressTableDecoder{}, 30*time.Second)
	denyFilter := denylist.New(deniedAddrs, tables)
	healthSup := health.New(sel.Slots(), health.DefaultThreshold)

	blockEngineQueue := blockengine.New()
	stage := forward.New(time.Duration(cliCtx.GlobalInt64(delayMillisFlag.Name))*time.Millisecond, blockEngineQueue)

	core := relayer.New(relayer.Config{
		Schedule:   schedule,
		Decoder:    decode.TransactionDecoder{},
		Denylist:   denyFilter,
		Health:     healthSup,
		Slots:      healthSup.Slots(),
		Batches:    stage.Out(),
		ForwardAll: cliCtx.GlobalBool(forwardAllFlag.Name),
		Lookahead:  cliCtx.GlobalUint64(lookaheadFlag.Name),
		BatchSize:  cliCtx.GlobalInt(batchSizeFlag.Name),
	})

	stakeOverrides, err := loadStakeOverrides(cliCtx.GlobalString(stakeOverridesPathFlag.Name), cliCtx.GlobalString(stakeMapIDFlag.Name))
	if err != nil {
		return nil, err
	}
	stakesUpdater := stakes.New(client, stakeOverrides)

	signer := auth.NewTokenSigner(signingKey)
	store := auth.NewChallengeStore()
	policy := scheduleAuthorizer{schedule: schedule}
	authSvc := auth.NewService(auth.Config{
		Store:        store,
		Signer:       signer,
		Health:       healthSup,
		Policy:       policy,
		ChallengeTTL: time.Duration(cliCtx.GlobalInt64(challengeTTLSecondsFlag.Name)) * time.Second,
		AccessTTL:    time.Duration(cliCtx.GlobalInt64(accessTTLSecondsFlag.Name)) * time.Second,
		RefreshTTL:   time.Duration(cliCtx.GlobalInt64(refreshTTLSecondsFlag.Name)) * time.Second,
	})
	interceptor := auth.NewInterceptor(signer)

	pool := tpuconfig.New(tpuPool)
	rpcSrv := rpcserver.New(rpcserver.Config{
		Addr:        cliCtx.GlobalString(rpcAddrFlag.Name),
		Auth:        authSvc,
		Interceptor: interceptor,
		Core:        core,
		TpuPool:     pool,
		Health:      healthSup,
	})

	if err := registerAll(registry,
		selectorService{sel: sel},
		runtime.NewLoopService(schedule.Run),
		runtime.NewLoopService(tables.Run),
		runtime.NewLoopService(healthSup.Run),
		runtime.NewLoopService(core.Run),
		runtime.NewLoopService(stakesUpdater.Run),
		runtime.NewLoopService(sweepLoop(authSvc)),
		ingest.New(cliCtx.GlobalString(udpAddrFlag.Name), stage),
		rpcSrv,
		monitor.New(cliCtx.GlobalString(monitorAddrFlag.Name), registry),
	); err != nil {
		return nil, err
	}

	return node, nil
}

func registerAll(registry *runtime.ServiceRegistry, services ...runtime.Service) error {
	for _, svc := range services {
		if err := registry.RegisterService(svc); err != nil {
			return err
		}
	}
	return nil
}

const sweepInterval = 30 * time.Second

// sweepLoop periodically evicts expired challenges so the store doesn't
// grow unbounded.
func sweepLoop(svc *auth.Service) func(ctx context.Context) {
	return func(ctx context.Context) {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := svc.Sweep(); n > 0 {
					log.WithField("evicted", n).Debug("swept expired challenges")
				}
			}
		}
	}
}

func loadStakeOverrides(path, mapID string) (map[types.ValidatorIdentity]uint64, error) {
	if path == "" {
		return nil, nil
	}
	data, err := fileutil.ReadFileAsBytes(path)
	if err != nil {
		return nil, err
	}
	return stakes.LoadOverrides(data, mapID)
}

// Start runs every registered service and blocks until a shutdown signal.
func (n *relayerNode) Start() {
	n.lock.Lock()
	log.Info("starting relayer node")
	n.services.StartAll()
	stop := n.stop
	n.lock.Unlock()

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigc)
		<-sigc
		log.Info("got interrupt, shutting down")
		go n.Close()
		for i := 10; i > 0; i-- {
			<-sigc
			if i > 1 {
				log.WithField("times", i-1).Info("already shutting down, interrupt more to force exit")
			}
		}
		fmt.Fprintln(os.Stderr, "forced exit after repeated interrupt")
		os.Exit(1)
	}()

	<-stop
}

// Close stops every registered service in reverse order.
func (n *relayerNode) Close() {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.services.StopAll()
	log.Info("relayer node stopped")
	close(n.stop)
}
