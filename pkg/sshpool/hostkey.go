package sshpool

import (
	"log/slog"
	"net"
	"os"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// HostKeyMode selects how an unrecognized host key is handled.
type HostKeyMode string

const (
	HostKeyReject  HostKeyMode = "reject"
	HostKeyWarning HostKeyMode = "warning"
	HostKeyAutoAdd HostKeyMode = "auto_add"
)

// NewHostKeyCallback builds an ssh.HostKeyCallback per spec §4.D.2: the
// system known_hosts file is loaded first; parse errors force reject;
// missing/unreadable files force reject unless AUTO_ADD_HOSTS is truthy.
// auto_add logs a warning on every connection.
func NewHostKeyCallback(knownHostsPath string, mode HostKeyMode) ssh.HostKeyCallback {
	if truthy(os.Getenv("AUTO_ADD_HOSTS")) {
		mode = HostKeyAutoAdd
	}

	known, err := knownhosts.New(knownHostsPath)
	if err != nil {
		if os.IsNotExist(err) || os.IsPermission(err) {
			if mode != HostKeyAutoAdd {
				slog.Warn("known_hosts file missing or unreadable, forcing reject mode", "path", knownHostsPath)
				mode = HostKeyReject
			}
		} else {
			slog.Error("known_hosts file unparsable, forcing reject mode", "path", knownHostsPath, "error", err)
			mode = HostKeyReject
		}
		known = nil
	}

	switch mode {
	case HostKeyAutoAdd:
		return autoAddCallback()
	case HostKeyWarning:
		return warningCallback(known)
	default:
		return rejectCallback(known)
	}
}

func truthy(v string) bool {
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES":
		return true
	default:
		return false
	}
}

func rejectCallback(known ssh.HostKeyCallback) ssh.HostKeyCallback {
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		if known == nil {
			return ErrHostKeyRejected
		}
		return known(hostname, remote, key)
	}
}

func warningCallback(known ssh.HostKeyCallback) ssh.HostKeyCallback {
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		if known == nil {
			slog.Warn("no known_hosts available, accepting host key", "host", hostname)
			return nil
		}
		if err := known(hostname, remote, key); err != nil {
			slog.Warn("host key not in known_hosts, accepting anyway (warning mode)", "host", hostname, "error", err)
		}
		return nil
	}
}

func autoAddCallback() ssh.HostKeyCallback {
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		slog.Warn("auto-adding host key (auto_add mode)", "host", hostname)
		return nil
	}
}
