package keys

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"github.com/oshokin/help-alert/internal/config"
	"github.com/oshokin/help-alert/internal/push/webpush"
)

// Options controls where the generated keys go.
type Options struct {
	// Output is a .env file to write; the keys are printed when empty.
	Output string
	// Force allows overwriting an existing Output file.
	Force bool
	// Out receives printed keys; os.Stdout when nil.
	Out io.Writer
}

// ErrOutputExists is returned when Output exists and Force is not set.
var ErrOutputExists = errors.New("output file already exists")

// Run generates a key pair and emits it as environment variables.
func Run(opts *Options) error {
	keys, err := webpush.GenerateKeys()
	if err != nil {
		return err
	}

	env := map[string]string{
		config.EnvVAPIDPublicKey:  keys.PublicKey,
		config.EnvVAPIDPrivateKey: keys.PrivateKey,
	}

	if opts.Output == "" {
		out := opts.Out
		if out == nil {
			out = os.Stdout
		}

		contents, err := godotenv.Marshal(env)
		if err != nil {
			return fmt.Errorf("marshal keys: %w", err)
		}

		_, err = fmt.Fprintln(out, contents)

		return err
	}

	if !opts.Force {
		if _, err = os.Stat(opts.Output); err == nil {
			return fmt.Errorf("%w: %s", ErrOutputExists, opts.Output)
		}
	}

	if err = godotenv.Write(env, opts.Output); err != nil {
		return fmt.Errorf("write keys: %w", err)
	}

	return nil
}
