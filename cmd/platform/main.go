package main

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/yonathanavila/verified-chain-bk/internal/api"
	"github.com/yonathanavila/verified-chain-bk/internal/config"
	"github.com/yonathanavila/verified-chain-bk/internal/core/services"
	"github.com/yonathanavila/verified-chain-bk/internal/gateways"
	"github.com/yonathanavila/verified-chain-bk/internal/health"
	"github.com/yonathanavila/verified-chain-bk/internal/kms"
	"github.com/yonathanavila/verified-chain-bk/internal/log"
	"github.com/yonathanavila/verified-chain-bk/internal/prover"
	"github.com/yonathanavila/verified-chain-bk/internal/registry"
	"github.com/yonathanavila/verified-chain-bk/pkg/blockchain/eth"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Error(context.Background(), "cannot load config", err)
		os.Exit(1)
	}

	// Context with log
	ctx := log.NewContext(context.Background(), cfg.Log.Level, cfg.Log.Mode, os.Stdout)

	rpc, err := ethclient.Dial(cfg.Ethereum.URL)
	if err != nil {
		log.Error(ctx, "cannot connect to the chain node", err, "url", cfg.Ethereum.URL)
		os.Exit(1)
	}
	client := eth.NewClient(rpc, &eth.ClientConfig{
		ReceiptTimeout:       cfg.Ethereum.ReceiptTimeout,
		DefaultGasLimit:      cfg.Ethereum.DefaultGasLimit,
		MinGasPrice:          big.NewInt(cfg.Ethereum.MinGasPrice),
		MaxGasPrice:          big.NewInt(cfg.Ethereum.MaxGasPrice),
		RPCResponseTimeout:   cfg.Ethereum.RPCResponseTimeout,
		WaitReceiptCycleTime: cfg.Ethereum.WaitReceiptCycleTime,
	})

	contract, err := registry.Load(cfg.Contract.ABIPath, cfg.Contract.Address)
	if err != nil {
		log.Error(ctx, "cannot load the registry contract", err)
		os.Exit(1)
	}

	signer, err := kms.NewSigner(kms.SignerConfig{PrivateKey: cfg.KeyStore.PrivateKey})
	if err != nil {
		log.Error(ctx, "cannot load the submission signer", err)
		os.Exit(1)
	}
	log.Info(ctx, "submission account loaded", "address", signer.Address().Hex())

	invoker := prover.New(prover.Config{
		BinaryPath:    cfg.Prover.BinaryPath,
		SecurityParam: cfg.Prover.SecurityParam,
		BitWidth:      cfg.Prover.BitWidth,
		InputPath:     cfg.Prover.InputPath,
		ModelPath:     cfg.Prover.ModelPath,
		WorkDir:       cfg.Prover.WorkDir,
		Timeout:       cfg.Prover.Timeout,
	})

	gateway := gateways.NewSubmissionEthGateway(client, contract, signer)
	pipeline := services.NewPipeline(invoker, gateway)
	status := health.New(map[string]health.Ping{"chain": client})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: api.NewServer(pipeline, status).Routes(ctx),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info(ctx, fmt.Sprintf("server started on port:%d", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "starting http server", err)
		}
	}()

	<-quit
	log.Info(ctx, "Shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "shutting down http server", err)
	}
}
