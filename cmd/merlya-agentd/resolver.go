package main

import (
	"fmt"

	"golang.org/x/crypto/ssh"

	"github.com/merlya/merlya-core/pkg/credentials"
	"github.com/merlya/merlya-core/pkg/sshpool"
)

// credentialResolver looks up per-host SSH connection parameters in the
// credential store. Only password auth from a host-specific secret is
// used; SSH agent and private-key files are not consulted.
type credentialResolver struct {
	store          *credentials.Store
	knownHostsPath string
	hostKeyMode    sshpool.HostKeyMode
}

func newCredentialResolver(store *credentials.Store, knownHostsPath string, hostKeyMode sshpool.HostKeyMode) *credentialResolver {
	return &credentialResolver{store: store, knownHostsPath: knownHostsPath, hostKeyMode: hostKeyMode}
}

// Resolve implements sshpool.HostResolver. It looks for "ssh_user:<host>"
// and "ssh_password:<host>" secrets set via `/credentials set-secret`
// (user defaults to root). A host with no password secret is an error;
// there is no fallback to an SSH agent or default key files.
func (r *credentialResolver) Resolve(hostname string) (sshpool.ConnectOptions, *ssh.ClientConfig, error) {
	user := "root"
	if v, ok := r.store.Get("ssh_user:" + hostname); ok {
		user = v.Value
	}

	var methods []ssh.AuthMethod
	if v, ok := r.store.Get("ssh_password:" + hostname); ok {
		methods = append(methods, ssh.Password(v.Value))
	}
	if len(methods) == 0 {
		return sshpool.ConnectOptions{}, nil, fmt.Errorf("credential resolver: no auth method configured for %s", hostname)
	}

	opts := sshpool.ConnectOptions{User: user, Host: hostname, Port: 22, AuthMethods: methods}
	clientCfg := &ssh.ClientConfig{
		User:            user,
		Auth:            methods,
		HostKeyCallback: sshpool.NewHostKeyCallback(r.knownHostsPath, r.hostKeyMode),
	}
	return opts, clientCfg, nil
}
