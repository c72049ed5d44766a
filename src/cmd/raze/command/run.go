package command

import (
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/razeblock/raze/src/config"
	"github.com/razeblock/raze/src/crypto"
	"github.com/razeblock/raze/src/node"
	"github.com/razeblock/raze/src/raze"
	vers "github.com/razeblock/raze/src/version"
)

var (
	conf    *config.Config
	datadir *string
	version *bool
)

func init() {
	conf = config.NewDefaultConfig()

	cobra.OnInitialize(initConfig)

	// Base datadir
	datadir = rootCmd.PersistentFlags().StringP("datadir", "d", conf.DataDir, "Base configuration directory")

	// Network and addresses
	rootCmd.PersistentFlags().StringP("network", "n", conf.Network, "Network to join (live, beta, test)")
	rootCmd.PersistentFlags().StringP("listen", "l", conf.BindAddr, "Listen IP:Port for the UDP socket")
	rootCmd.PersistentFlags().StringSlice("peers", conf.PreconfiguredPeers, "Preconfigured peers to contact at startup")

	// Various
	rootCmd.PersistentFlags().String("log", conf.LogLevel, "Log level (debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().Bool("log-file", conf.LogToFile, "Mirror the log into the data directory")
	rootCmd.PersistentFlags().Bool("enable-voting", conf.EnableVoting, "Vote on blocks with the key in the keyfile")
	rootCmd.PersistentFlags().StringSlice("work-peers", conf.WorkPeers, "Work server URLs raced against local generation")
	rootCmd.PersistentFlags().String("callback", conf.CallbackURL, "URL receiving a JSON POST per accepted block")
	rootCmd.PersistentFlags().Int("bootstrap-fraction", conf.BootstrapFraction, "256ths of supply confirming a gap before bootstrap")

	// Version
	version = rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version and exit")

	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	viper.AddConfigPath(*datadir)
	viper.SetConfigName("raze")

	viper.BindPFlags(rootCmd.PersistentFlags())

	if err := viper.ReadInConfig(); err != nil {
		conf.Logger().Warn(err, ". Taking cli or default.")
	}

	if err := viper.Unmarshal(conf); err != nil {
		conf.Logger().Warn(err, ". Taking cli or default.")
	}

	conf.SetDataDir(*datadir)
}

var rootCmd = &cobra.Command{
	Use:   "raze",
	Short: "Raze block lattice node",
	Long:  "Raze block lattice node",
	RunE: func(cmd *cobra.Command, args []string) error {
		if *version {
			fmt.Println(vers.Version)

			return nil
		}

		logger := conf.Logger()
		logger.WithFields(logrus.Fields{
			"datadir":            conf.DataDir,
			"network":            conf.Network,
			"listen":             conf.BindAddr,
			"peers":              conf.PreconfiguredPeers,
			"enable-voting":      conf.EnableVoting,
			"work-peers":         conf.WorkPeers,
			"callback":           conf.CallbackURL,
			"bootstrap-fraction": conf.BootstrapFraction,
			"log":                conf.LogLevel,
		}).Debug("RUN")

		network, err := selectNetwork(conf.Network)
		if err != nil {
			return err
		}

		var voteKey *crypto.KeyPair
		if conf.EnableVoting {
			voteKey, err = crypto.NewKeyFile(conf.Keyfile()).ReadKey()
			if err != nil {
				return fmt.Errorf("reading voting key: %v", err)
			}
		}

		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		n, err := node.NewNode(conf, network, voteKey, nil, rng)
		if err != nil {
			return err
		}
		if err := n.Start(); err != nil {
			return err
		}

		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
		<-signals

		n.Stop()

		return nil
	},
}

func selectNetwork(name string) (*raze.Network, error) {
	switch name {
	case "live":
		return raze.LiveNetwork(), nil
	case "beta":
		return raze.BetaNetwork(), nil
	case "test":
		return raze.TestNetwork(), nil
	default:
		return nil, fmt.Errorf("unknown network %q", name)
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)

		os.Exit(1)
	}
}
