// @title           Commission Art Backend API
// @version         1.0.0
// @description     Backend API for commissioned artwork: order requests with reference images, the accept, price, pay and deliver workflow, per-order chat, a public gallery, and server-sent change events.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

func main() {
	Execute()
}
