// Command sdstore is the sdstore client: it submits a status query or
// a proc-file request to a running sdstored, then prints every
// message the server sends back until a terminal one arrives.
//
// CLI-side validation granularity (NoPriorityProvided,
// InvalidPriority, InvalidInputOutputPaths, NoFiltersProvided,
// InvalidFilterProvided) mirrors the Rust original's
// TaskParseError/ClientReqParseError enums in
// original_source/src/core/{client_task,messaging}.rs; urfave/cli/v2
// command registration follows ethereum-go-ethereum's cmd/geth.
package main

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"

	"sdstore/internal/filter"
	"sdstore/internal/protocol"
	"sdstore/internal/sockdir"
)

func main() {
	app := &cli.App{
		Name:  "sdstore",
		Usage: "submit requests to a running sdstored",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "sock-dir",
				Usage: "directory holding the server and client Unix datagram sockets (default: ./tmp)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "print the server's current running tasks and filter limits",
				Action: runStatus,
			},
			{
				Name:      "proc-file",
				Usage:     "request processing of a file through a sequence of filters",
				ArgsUsage: "<priority> <input-path> <output-path> <filter> [<filter> ...]",
				Action:    runProcFile,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "sdstore:", err)
		os.Exit(1)
	}
}

// dial binds this client's own socket and returns it together with
// the server's address, ready for a single request/response exchange.
func dial(c *cli.Context) (conn *net.UnixConn, serverAddr *net.UnixAddr, clientPID uint32, err error) {
	sockDir, err := sockdir.Dir(c.String("sock-dir"))
	if err != nil {
		return nil, nil, 0, err
	}
	clientPID = uint32(os.Getpid())
	conn, err = sockdir.BindClient(sockDir, clientPID)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("bind client socket: %w", err)
	}
	serverAddr = &net.UnixAddr{Name: sockdir.ServerSocketPath(sockDir), Net: "unixgram"}
	return conn, serverAddr, clientPID, nil
}

func runStatus(c *cli.Context) error {
	conn, serverAddr, _, err := dial(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer conn.Close()

	payload, err := protocol.EncodeClientRequest(protocol.NewStatusRequest())
	if err != nil {
		return cli.Exit(err, 1)
	}
	if _, err := conn.WriteToUnix(payload, serverAddr); err != nil {
		return cli.Exit(fmt.Errorf("send status request: %w", err), 1)
	}

	buf := make([]byte, protocol.MaxDatagramSize)
	n, err := conn.Read(buf)
	if err != nil {
		return cli.Exit(fmt.Errorf("read status reply: %w", err), 1)
	}
	fmt.Fprint(c.App.Writer, string(buf[:n]))
	return nil
}

func runProcFile(c *cli.Context) error {
	t, err := parseProcFile(c.Args().Slice())
	if err != nil {
		return cli.Exit(err, 1)
	}

	conn, serverAddr, clientPID, err := dial(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer conn.Close()

	req := protocol.NewProcFileRequest(clientPID, t.priority, t.input, t.output, t.filters)
	payload, err := protocol.EncodeClientRequest(req)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if _, err := conn.WriteToUnix(payload, serverAddr); err != nil {
		return cli.Exit(fmt.Errorf("send proc-file request: %w", err), 1)
	}

	buf := make([]byte, protocol.MaxDatagramSize)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return cli.Exit(fmt.Errorf("read server message: %w", err), 1)
		}
		msg, err := protocol.DecodeMessage(buf[:n])
		if err != nil {
			return cli.Exit(fmt.Errorf("decode server message: %w", err), 1)
		}
		fmt.Fprintln(c.App.Writer, msg.String())
		if msg.Terminal() {
			return nil
		}
	}
}

// procFileArgs is the client-side parsed form of a proc-file request,
// before it is wrapped in a ClientRequest for the wire.
type procFileArgs struct {
	priority uint64
	input    string
	output   string
	filters  []filter.Filter
}

// parseProcFileError mirrors the granularity of the Rust original's
// TaskParseError, giving a distinct, nameable cause for every way a
// proc-file command line can be malformed.
type parseProcFileError struct {
	reason string
	token  string
}

func (e *parseProcFileError) Error() string {
	if e.token == "" {
		return e.reason
	}
	return fmt.Sprintf("%s: %q", e.reason, e.token)
}

func parseProcFile(args []string) (procFileArgs, error) {
	if len(args) == 0 {
		return procFileArgs{}, &parseProcFileError{reason: "no priority provided"}
	}
	priority, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return procFileArgs{}, &parseProcFileError{reason: "invalid priority", token: args[0]}
	}
	args = args[1:]

	if len(args) < 2 {
		return procFileArgs{}, &parseProcFileError{reason: "invalid input/output paths"}
	}
	input, output := args[0], args[1]
	args = args[2:]

	if len(args) == 0 {
		return procFileArgs{}, &parseProcFileError{reason: "no filters provided"}
	}
	filters := make([]filter.Filter, len(args))
	for i, name := range args {
		f, err := filter.Parse(name)
		if err != nil {
			return procFileArgs{}, &parseProcFileError{reason: "invalid filter provided", token: name}
		}
		filters[i] = f
	}

	return procFileArgs{priority: priority, input: input, output: output, filters: filters}, nil
}
