// Command brein sends activities, lookups, temporal data and recommendation
// requests from the command line.
//
// Example Usage:
//
//	brein --api-key $BREIN_API_KEY activity --type login --email diane@example.com
//	brein temporaldata --location "San Francisco" -o json
//	brein identify --store-driver bolt --store-path ~/.brein/brein.db --token $PUSH_TOKEN
package main

import (
	"os"

	"brein.evalgo.org/cli"
	"brein.evalgo.org/common"
)

func main() {
	if err := cli.Execute(); err != nil {
		common.Logger.Error(err)
		os.Exit(1)
	}
}
