package main

import "github.com/urfave/cli"

// Flags are declared one var per flag as plain cli.*Flag literals, kept
// local to cmd/relayer rather than factored into a shared package.
var (
	rpcAddrFlag = cli.StringFlag{
		Name:  "rpc-addr",
		Usage: "Listen address for the relayer's gRPC server.",
		Value: ":9001",
	}
	monitorAddrFlag = cli.StringFlag{
		Name:  "monitor-addr",
		Usage: "Listen address for /metrics and /healthz.",
		Value: ":8080",
	}
	udpAddrFlag = cli.StringFlag{
		Name:  "udp-addr",
		Usage: "Listen address for inbound transaction packet datagrams.",
		Value: ":8001",
	}
	upstreamURLFlag = cli.StringFlag{
		Name:  "upstream-url",
		Usage: "Base URL of the upstream data source (epoch info, leader schedule, stake, table accounts, slot).",
		Value: "http://127.0.0.1:8899",
	}
	verbosityFlag = cli.StringFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity (debug, info, warn, error, fatal, panic).",
		Value: "info",
	}
	logFileFlag = cli.StringFlag{
		Name:  "log-file",
		Usage: "If set, also write logs to this file in addition to stdout.",
	}
	denylistFlag = cli.StringFlag{
		Name:  "denylist",
		Usage: "Space-separated list of base58-encoded denied addresses. Empty disables filtering.",
	}
	forwardAllFlag = cli.BoolFlag{
		Name:  "forward-all",
		Usage: "Forward every batch to every connected validator instead of only lookahead leaders.",
	}
	lookaheadFlag = cli.Uint64Flag{
		Name:  "lookahead",
		Usage: "Number of slots, starting at the current slot, whose leaders are eligible recipients.",
		Value: 2,
	}
	batchSizeFlag = cli.IntFlag{
		Name:  "batch-size",
		Usage: "Maximum packets per re-chunked outbound batch.",
		Value: 64,
	}
	delayMillisFlag = cli.Int64Flag{
		Name:  "delay-millis",
		Usage: "Forwarding delay in milliseconds before a batch reaches the relayer core (0 disables delay).",
	}
	stakeOverridesPathFlag = cli.StringFlag{
		Name:  "stake-overrides-path",
		Usage: "Path to the YAML stake-overrides file. Empty disables overrides.",
	}
	stakeMapIDFlag = cli.StringFlag{
		Name:  "stake-map-id",
		Usage: "Key into the stake-overrides file's top-level map to use.",
		Value: "default",
	}
	tpuPoolFlag = cli.StringFlag{
		Name:  "tpu-pool",
		Usage: "Comma-separated tpu_ip:tpu_port:fwd_ip:fwd_port entries for GetTpuConfigs round-robin.",
	}
	rsaKeyPathFlag = cli.StringFlag{
		Name:  "rsa-key-path",
		Usage: "Path to a PEM-encoded RSA private key used to sign auth tokens.",
	}
	rsaKeyPassphraseFlag = cli.StringFlag{
		Name:  "rsa-key-passphrase",
		Usage: "Passphrase for an encrypted RSA private key PEM block.",
	}
	rsaKeyPassphraseBcryptHashFlag = cli.StringFlag{
		Name:  "rsa-key-passphrase-bcrypt-hash",
		Usage: "bcrypt hash the supplied passphrase must match before the key is decrypted. Empty skips the gate.",
	}
	challengeTTLSecondsFlag = cli.Int64Flag{
		Name:  "challenge-ttl-seconds",
		Value: 30,
	}
	accessTTLSecondsFlag = cli.Int64Flag{
		Name:  "access-ttl-seconds",
		Value: 300,
	}
	refreshTTLSecondsFlag = cli.Int64Flag{
		Name:  "refresh-ttl-seconds",
		Value: 86400,
	}
)

var appFlags = []cli.Flag{
	rpcAddrFlag,
	monitorAddrFlag,
	udpAddrFlag,
	upstreamURLFlag,
	verbosityFlag,
	logFileFlag,
	denylistFlag,
	forwardAllFlag,
	lookaheadFlag,
	batchSizeFlag,
	delayMillisFlag,
	stakeOverridesPathFlag,
	stakeMapIDFlag,
	tpuPoolFlag,
	rsaKeyPathFlag,
	rsaKeyPassphraseFlag,
	rsaKeyPassphraseBcryptHashFlag,
	challengeTTLSecondsFlag,
	accessTTLSecondsFlag,
	refreshTTLSecondsFlag,
}
