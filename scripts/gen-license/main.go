package main

import (
	"crypto/ed25519"
	"flag"
	"fmt"
	"io/ioutil"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gridpro/gridpro/pkg/license"
)

func main() {
	var customer string
	var tierName string
	var products string
	var versionConstraint string
	var expiryDays int
	var expiryTimeStr string
	var privateKeyPath string
	var outputPath string

	flag.StringVar(&customer, "customer", "", "Company that will be using the license")
	flag.StringVar(&tierName, "tier", "commercial", "License tier (trial, noncommercial or commercial)")
	flag.StringVar(&products, "products", "", "Comma separated products the key unlocks. Empty means every product")
	flag.StringVar(&versionConstraint, "version", "", "Semver constraint on the gridpro versions the key unlocks, e.g. '>= 1.2, < 2'")
	flag.IntVar(&expiryDays, "expiration-days", -1, "Days until license expires")
	flag.StringVar(&expiryTimeStr, "expiration-date", "", "Datetime that license expires (in RFC3339 format, e.g. 2006-01-02T15:04:05Z)")
	flag.StringVar(&privateKeyPath, "privkey", "", "Path to private key")
	flag.StringVar(&outputPath, "out", "", "Output path for the product key. Defaults to stdout")
	flag.Parse()

	tier, err := license.ParseTier(tierName)
	if err != nil || tier == license.None {
		log.WithField("tier", tierName).Fatal("Please specify a valid -tier")
	}

	var expiryTime time.Time
	switch {
	case expiryTimeStr != "":
		expiryTime, err = time.Parse(time.RFC3339, expiryTimeStr)
		if err != nil {
			log.WithError(err).Fatal("Failed to parse expiration datetime")
		}
	case expiryDays > 0:
		expiryTime = time.Now().Add(time.Duration(expiryDays*24) * time.Hour)
	case tier == license.Trial:
		log.Fatal("Trial licenses must expire. Please specify -expiration-days or -expiration-date")
	}
	if !expiryTime.IsZero() {
		expiryTime = expiryTime.UTC()
	}

	if privateKeyPath == "" {
		log.Fatal("Please specify -privkey")
	}

	privKeyBytes, err := ioutil.ReadFile(privateKeyPath)
	if err != nil {
		log.WithError(err).WithField("privateKeyPath", privateKeyPath).
			Fatal("Failed to read private key")
	}
	if len(privKeyBytes) != ed25519.PrivateKeySize {
		log.WithField("privateKeyPath", privateKeyPath).Fatal("Not an ed25519 private key")
	}

	rawLicense := license.License{
		Customer:   customer,
		Tier:       tier,
		ExpiryTime: expiryTime,
		Version:    versionConstraint,
	}
	for _, product := range strings.Split(products, ",") {
		if product = strings.TrimSpace(product); product != "" {
			rawLicense.Products = append(rawLicense.Products, product)
		}
	}

	productKey, err := license.Sign(ed25519.PrivateKey(privKeyBytes), rawLicense)
	if err != nil {
		log.WithError(err).Fatal("Failed to sign license")
	}

	if outputPath == "" {
		fmt.Println(productKey)
		return
	}

	if err := ioutil.WriteFile(outputPath, []byte(productKey+"\n"), 0600); err != nil {
		log.WithError(err).Fatal("Failed to write product key")
	}
	fmt.Printf("Successfully wrote product key to '%s'\n", outputPath)
}
