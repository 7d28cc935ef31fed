// conciliar ejecuta una corrida de conciliación sobre una carpeta de archivos de onboarding
// y escribe los reportes en la carpeta de resultados.
//
// Uso: go run ./cmd/conciliar -cliente <id> [-entrada data] [-salida results] [-formatos json,xlsx,pdf] [-clases 5,6]
//
// La carpeta de entrada sigue la estructura que espera readers.LoadDir
// (modelos_terceros/, libros_auxiliares/, facturas/, ...).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jhoicas/onboarding-contable/internal/application/onboarding"
	"github.com/jhoicas/onboarding-contable/internal/domain/entity"
	"github.com/jhoicas/onboarding-contable/internal/infrastructure/lock"
	"github.com/jhoicas/onboarding-contable/internal/infrastructure/postgres"
	"github.com/jhoicas/onboarding-contable/internal/infrastructure/readers"
	"github.com/jhoicas/onboarding-contable/internal/infrastructure/report"
	"github.com/jhoicas/onboarding-contable/pkg/config"
	"github.com/jhoicas/onboarding-contable/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "cargar configuración:", err)
		os.Exit(2)
	}

	clientID := flag.String("cliente", "", "identificador del cliente contable (requerido)")
	inputDir := flag.String("entrada", cfg.Data.InputDir, "carpeta con los archivos de onboarding")
	outputDir := flag.String("salida", cfg.Data.ResultsDir, "carpeta donde se escriben los reportes")
	formats := flag.String("formatos", "json,xlsx", "formatos de reporte separados por coma (json, xlsx, pdf)")
	classes := flag.String("clases", strings.Join(cfg.Recon.PUCClasses, ","), "clases PUC del libro auxiliar a conciliar")
	flag.Parse()

	if strings.TrimSpace(*clientID) == "" {
		flag.Usage()
		os.Exit(2)
	}
	var outFormats []report.Format
	for _, s := range strings.Split(*formats, ",") {
		f, err := report.ParseFormat(s)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		outFormats = append(outFormats, f)
	}

	// Los logs van a stderr; stdout queda para el resumen.
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Output: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, *clientID, *inputDir, *outputDir, *classes, outFormats); err != nil {
		log.Error().Err(err).Str("client_id", *clientID).Msg("corrida fallida")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger, clientID, inputDir, outputDir, classes string, formats []report.Format) error {
	in, err := readers.LoadDir(inputDir, clientID, log)
	if err != nil {
		return err
	}

	opts := onboarding.OptionsFromConfig(cfg.Recon)
	opts.PUCClasses = nil
	for _, c := range strings.Split(classes, ",") {
		if c = strings.TrimSpace(c); c != "" {
			opts.PUCClasses = append(opts.PUCClasses, c)
		}
	}

	var store onboarding.ResultStore
	if cfg.DB.Enabled() {
		if cfg.DB.Migrate {
			if err := postgres.Migrate(cfg.DB, log); err != nil {
				return err
			}
		}
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = postgres.NewRunRepository(pool)
	}

	var locker onboarding.RunLocker = lock.NewLocalLocker()
	if cfg.Redis.Addr != "" {
		rdb, err := lock.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, time.Duration(cfg.Redis.LockTTLSec)*time.Second, log)
	}

	res, err := onboarding.NewPipeline(opts, log, store, locker).Run(ctx, in)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("crear %s: %w", outputDir, err)
	}
	base := filepath.Join(outputDir, fmt.Sprintf("conciliacion-%s-%s", clientID, res.StartedAt.Format("20060102-150405")))
	for _, f := range formats {
		path := base + f.Ext()
		if err := writeReport(ctx, path, res, f); err != nil {
			return err
		}
		log.Info().Str("path", path).Str("format", string(f)).Msg("reporte escrito")
	}

	printSummary(res)
	return nil
}

func writeReport(ctx context.Context, path string, res *onboarding.Result, f report.Format) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("crear %s: %w", path, err)
	}
	if err := report.Write(ctx, out, res, f); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func printSummary(res *onboarding.Result) {
	s := res.Summary
	fmt.Printf("Corrida %s (cliente %s)\n", res.RunID, res.ClientID)
	fmt.Printf("  transacciones: %d  facturas: %d  proveedores: %d (%d provisionales)\n",
		s.Transactions, s.Invoices, s.Suppliers, s.Provisional)
	fmt.Printf("  conciliadas: %d  ambiguas: %d  sin conciliar: %d\n",
		s.ByStatus[entity.MatchAccepted], s.ByStatus[entity.MatchAmbiguous], s.ByStatus[entity.MatchUnmatched])
	fmt.Printf("  valor conciliado: %s\n", s.AcceptedValue.StringFixed(2))
	for _, c := range s.ByClass {
		fmt.Printf("  clase %s %-20s %4d tx  %4d conciliadas  %s\n", c.Class, c.Name, c.Transactions, c.Accepted, c.Value.StringFixed(2))
	}
}
