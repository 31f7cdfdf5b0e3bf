// Command jwtgate runs a small HTTP API protected by the authentication gate.
//
//	AUTH_URL=https://a.labshare.org AUTH_TENANT=ls jwtgate serve --operations operations.yaml
package main

func main() {
	Execute()
}
