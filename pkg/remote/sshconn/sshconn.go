// Package sshconn dials authenticated SSH connections for the SCP and SFTP
// backends.
package sshconn

import (
	"os"

	homedir "github.com/mitchellh/go-homedir"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/treesync-io/treesync/pkg/config"
	"github.com/treesync-io/treesync/pkg/errors"
)

// Dial connects and authenticates to the profile's server. The caller owns
// the returned client and must close it when the run finishes.
func Dial(profile config.Profile) (*ssh.Client, error) {
	auth, err := authMethods(profile)
	if err != nil {
		return nil, err
	}

	hostKeyCallback, err := hostKeyVerifier(profile)
	if err != nil {
		return nil, err
	}

	client, err := ssh.Dial("tcp", profile.Address(), &ssh.ClientConfig{
		User:            profile.User,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
	})
	if err != nil {
		return nil, errors.ConnectivityError{Server: profile.Server, Err: err}
	}
	return client, nil
}

func authMethods(profile config.Profile) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if profile.KeyFile != "" {
		keyBytes, err := os.ReadFile(profile.KeyFile)
		if err != nil {
			return nil, errors.WithContext(err, "read private key")
		}

		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, errors.WithContext(err, "parse private key")
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if profile.Password != "" {
		methods = append(methods, ssh.Password(profile.Password))
	}

	if len(methods) == 0 {
		return nil, errors.NewFriendlyError(
			"No SSH credentials for %q. Set either a password or a key file "+
				"in the profile.", profile.Server)
	}
	return methods, nil
}

func hostKeyVerifier(profile config.Profile) (ssh.HostKeyCallback, error) {
	if profile.InsecureSkipVerify {
		return ssh.InsecureIgnoreHostKey(), nil
	}

	knownHostsPath := profile.KnownHostsFile
	if knownHostsPath == "" {
		expanded, err := homedir.Expand("~/.ssh/known_hosts")
		if err != nil {
			return nil, errors.WithContext(err, "expand known_hosts path")
		}
		knownHostsPath = expanded
	}

	callback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, errors.NewFriendlyError(
			"Unable to verify server identities using %q: %s.\n"+
				"Set knownHostsFile in the profile, or insecureSkipVerify "+
				"to disable verification.", knownHostsPath, err)
	}
	return callback, nil
}
