// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcdesc/descstore"
	"github.com/btcsuite/btcdesc/network"
)

const (
	defaultLogLevel    = "info"
	defaultLogDirname  = "logs"
	defaultLogFilename = "descutil.log"
	defaultDBFilename  = "descriptors.db"
	defaultNetwork     = "bitcoin"
)

var (
	defaultAppDataDir = btcutil.AppDataDir("descutil", false)
	defaultLogDir     = filepath.Join(defaultAppDataDir, defaultLogDirname)
	defaultDBPath     = filepath.Join(defaultAppDataDir, defaultDBFilename)
)

// config defines the global configuration options for descutil.
//
// See load for details on the configuration load process.
type config struct {
	Network    string `long:"network" description:"Network of keys and addresses" default:"bitcoin"`
	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems" default:"info"`
	LogDir     string `long:"logdir" description:"Directory to log output"`
	DB         string `long:"db" description:"Descriptor store: path of a SQLite file or a postgres:// connection URL"`

	// net is the resolved network.
	net *network.Network
}

// defaultConfig returns the configuration with every default applied.
func defaultConfig() *config {
	return &config{
		Network:    defaultNetwork,
		DebugLevel: defaultLogLevel,
		LogDir:     defaultLogDir,
		DB:         defaultDBPath,
	}
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	switch logLevel {
	case "trace", "debug", "info", "warn", "error", "critical":
		return true
	}

	return false
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly. An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimiters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") &&
		!strings.Contains(debugLevel, "=") {

		// Validate debug log level.
		if !validLogLevel(debugLevel) {
			return fmt.Errorf("the specified debug level [%v] is "+
				"invalid", debugLevel)
		}

		// Change the logging level for all subsystems.
		setLogLevels(debugLevel)

		return nil
	}

	// Split the specified string into subsystem/level pairs while
	// detecting issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			return fmt.Errorf("the specified debug level contains "+
				"an invalid subsystem/level pair [%v]",
				logLevelPair)
		}

		// Extract the specified subsystem and log level.
		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		// Validate subsystem.
		if _, exists := subsystemLoggers[subsysID]; !exists {
			return fmt.Errorf("the specified subsystem [%v] is "+
				"invalid -- supported subsystems %v", subsysID,
				supportedSubsystems())
		}

		// Validate log level.
		if !validLogLevel(logLevel) {
			return fmt.Errorf("the specified debug level [%v] is "+
				"invalid", logLevel)
		}

		setLogLevel(subsysID, logLevel)
	}

	return nil
}

// load validates the parsed options, resolves the network and starts
// logging. It is run before any command executes.
func (cfg *config) load() error {
	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", supportedSubsystems())
		os.Exit(0)
	}

	n, err := network.ByName(cfg.Network)
	if err != nil {
		return fmt.Errorf("%w, known networks: %s", err,
			strings.Join(network.Names(), ", "))
	}
	cfg.net = n

	if cfg.LogDir == "" {
		cfg.LogDir = defaultLogDir
	}
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
	err = initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename))
	if err != nil {
		return err
	}

	return parseAndSetDebugLevels(cfg.DebugLevel)
}

// isPostgresURL reports whether the store location is a postgres URL.
func isPostgresURL(db string) bool {
	return strings.HasPrefix(db, "postgres://") ||
		strings.HasPrefix(db, "postgresql://")
}

// openStore opens the configured descriptor store. The returned function
// closes it.
func (cfg *config) openStore(ctx context.Context) (descstore.Store,
	func(), error) {

	db := cfg.DB
	if db == "" {
		db = defaultDBPath
	}

	if isPostgresURL(db) {
		s, err := descstore.OpenPostgresStore(ctx, db)
		if err != nil {
			return nil, nil, err
		}

		return s, func() { _ = s.Close() }, nil
	}

	path := cleanAndExpandPath(db)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, nil, err
	}

	s, err := descstore.OpenSQLiteStore(path)
	if err != nil {
		return nil, nil, err
	}
	log.Debugf("Opened descriptor store %s", path)

	return s, func() { _ = s.Close() }, nil
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(defaultAppDataDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}
