package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"io/ioutil"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/gridpro/gridpro/pkg/license"
)

func main() {
	var privateKeyPath string
	var publicKeyPath string
	var force bool

	flag.StringVar(&privateKeyPath, "privkey", "", "Output path for the private key")
	flag.StringVar(&publicKeyPath, "pubkey", "", "Output path for the public key")
	flag.BoolVar(&force, "force", false, "Overwrite existing key files")
	flag.Parse()

	if privateKeyPath == "" || publicKeyPath == "" {
		log.Fatal("Please specify -privkey and -pubkey")
	}

	if !force {
		for _, path := range []string{privateKeyPath, publicKeyPath} {
			if _, err := os.Stat(path); err == nil {
				log.WithField("path", path).Fatal("Key file already exists. Use -force to replace it")
			}
		}
	}

	pubkey, privkey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		log.WithError(err).Fatal("Failed to generate key")
	}

	if err := ioutil.WriteFile(privateKeyPath, privkey, 0400); err != nil {
		log.WithError(err).WithField("path", privateKeyPath).Fatal("Failed to write private key")
	}
	if err := ioutil.WriteFile(publicKeyPath, pubkey, 0644); err != nil {
		log.WithError(err).WithField("path", publicKeyPath).Fatal("Failed to write public key")
	}

	encoded := base64.StdEncoding.EncodeToString(pubkey)
	if _, err := license.DecodePublicKey(encoded); err != nil {
		log.WithError(err).Fatal("Generated public key doesn't round trip")
	}

	// The encoded key goes in licensePublicKey, or is baked in with
	// -ldflags "-X github.com/gridpro/gridpro/pkg/license.LicensePublicKeyBase64=...".
	fmt.Println(encoded)
}
