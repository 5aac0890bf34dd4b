package main

import "github.com/ateesdalejr/podlistener/cmd"

// @title           Podlistener API
// @version         1.0.0
// @description     A podcast feed monitoring and keyword mention mining API
// @contact.name    API Support
// @contact.url     https://github.com/ateesdalejr/podlistener
// @license.name    MIT
// @license.url     https://opensource.org/licenses/MIT
// @host            localhost:8080
// @BasePath        /
// @schemes         http
func main() {
	cmd.Execute()
}
