package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/SpatiumPortae/tuneshare/cmd/tuneshare/config"
	"github.com/SpatiumPortae/tuneshare/cmd/tuneshare/tui"
	"github.com/SpatiumPortae/tuneshare/cmd/tuneshare/tui/filetable"
	"github.com/SpatiumPortae/tuneshare/internal/logger"
	"github.com/SpatiumPortae/tuneshare/internal/session"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	proxyFlagDesc = `URL of the directory web server. Accepted formats:
  - http://127.0.0.1:5001
  - https://music.example.com
	`
	coordinatorFlagDesc = `Address of the coordinator. Accepted formats:
  - 127.0.0.1:5000
  - [::1]:5000
  - somedomain.com
	`
	tuiStyleFlagDesc = "Style of the tui (rich|raw)"
)

var validate = validator.New()
var ErrInvalidAddress = errors.New("invalid address provided")

// validateAddress validates a hostname or IP, optionally with a port.
func validateAddress(addr string) error {

	// IPv4 and IPv6 address validation.
	err := validate.Var(addr, "ip")
	if err == nil {
		return nil
	}

	// IPv4 or IPv6 or domain or localhost.
	err = validate.Var(addr, "hostname")
	if err == nil {
		return nil
	}

	// IPv4 or domain or localhost and a port. Or just a shortand port (:1234).
	err = validate.Var(addr, "hostname_port")
	if err == nil {
		return nil
	}

	// Also validate IPv6 host + port combination. The hostname_port validator does not validate this.
	_, port, hostPortErr := net.SplitHostPort(addr)
	// Additionally, validate the port range.
	if p, err := strconv.Atoi(port); err != nil || p < 0 || p > 65535 {
		return ErrInvalidAddress
	}
	if hostPortErr == nil {
		return nil
	}

	return ErrInvalidAddress
}

// validateURL validates an absolute http(s) URL.
func validateURL(u string) error {
	if err := validate.Var(u, "url"); err != nil {
		return ErrInvalidAddress
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return ErrInvalidAddress
	}
	return nil
}

// validateCoordinator accepts either a bare address or a URL.
func validateCoordinator(addr string) error {
	if strings.Contains(addr, "://") {
		return validateURL(addr)
	}
	return validateAddress(addr)
}

// setupLoggingFromViper returns a logger writing to `.tuneshare-[cmd].log` when verbose
// logging is enabled and a no-op logger otherwise.
func setupLoggingFromViper(cmd string) (*zap.Logger, error) {
	if !viper.GetBool("verbose") {
		return zap.NewNop(), nil
	}
	lgr, err := logger.NewFile(fmt.Sprintf(".tuneshare-%s.log", cmd))
	if err != nil {
		return nil, fmt.Errorf("could not log to the provided file: %w", err)
	}
	return lgr.With(zap.String("command", cmd)), nil
}

// bindConnectionFlags binds the flags shared by every command talking to the directory.
func bindConnectionFlags(cmd *cobra.Command) error {
	if err := viper.BindPFlag("proxy", cmd.Flags().Lookup("proxy")); err != nil {
		return fmt.Errorf("binding proxy flag: %w", err)
	}
	if err := viper.BindPFlag("coordinator", cmd.Flags().Lookup("coordinator")); err != nil {
		return fmt.Errorf("binding coordinator flag: %w", err)
	}
	if err := viper.BindPFlag("tui_style", cmd.Flags().Lookup("tui-style")); err != nil {
		return fmt.Errorf("binding tui-style flag: %w", err)
	}
	return nil
}

func addConnectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("proxy", "p", "", proxyFlagDesc)
	cmd.Flags().StringP("coordinator", "c", "", coordinatorFlagDesc)
	cmd.Flags().StringP("tui-style", "s", "", tuiStyleFlagDesc)
}

// newSession validates the configured addresses and creates a session for the command.
func newSession(cmdName string, opts ...session.Option) (*session.Session, *zap.Logger, error) {
	proxy := viper.GetString("proxy")
	if err := validateURL(proxy); err != nil {
		return nil, nil, fmt.Errorf("%w: (%s) is not a valid proxy url", err, proxy)
	}
	coordinator := viper.GetString("coordinator")
	if err := validateCoordinator(coordinator); err != nil {
		return nil, nil, fmt.Errorf("%w: (%s) is not a valid coordinator address", err, coordinator)
	}
	cfg, err := config.Session()
	if err != nil {
		return nil, nil, fmt.Errorf("reading session config: %w", err)
	}
	lgr, err := setupLoggingFromViper(cmdName)
	if err != nil {
		return nil, nil, err
	}
	s, err := session.New(cfg, append([]session.Option{session.WithLogger(lgr)}, opts...)...)
	if err != nil {
		return nil, nil, fmt.Errorf("creating session: %w", err)
	}
	return s, lgr, nil
}

// signalContext returns a context cancelled by an interrupt or termination signal.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// printRows prints a two column listing in the configured tui style.
func printRows(nameTitle, infoTitle string, rows []filetable.Row) error {
	switch viper.GetString("tui_style") {
	case config.StyleRich:
		if len(rows) == 0 {
			fmt.Println(tui.PadText + tui.InfoStyle("Nothing to show"))
			return nil
		}
		table := filetable.New(
			filetable.WithTitles(nameTitle, infoTitle),
			filetable.WithMaxHeight(len(rows)),
			filetable.WithRows(rows),
		)
		fmt.Print(table.Finalize().View())
		return nil
	case config.StyleRaw:
		for _, row := range rows {
			fmt.Printf("%s\t%s\n", row.Name, row.Info)
		}
		return nil
	default:
		return errors.New("invalid tui style provided")
	}
}
