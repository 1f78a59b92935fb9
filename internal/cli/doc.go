// Package cli wires the srvscope commands together using cobra.
//
// Commands:
//
//	srvscope            - Open the live dashboard (same as watch)
//	srvscope watch      - Open the live dashboard
//	srvscope logs       - Fetch server logs (one-shot, follow, or download)
//	srvscope restart    - Restart the server after confirmation
//	srvscope config     - Read and write settings (get/set/path)
//	srvscope version    - Print version information
//	srvscope completion - Generate shell completion scripts
//
// Persistent flags --config, --server, --interval, and --realtime apply
// to every command and override the corresponding config file values.
package cli
