// Command ks is a CLI client for the keepsake catalog service.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/and161185/keepsake/internal/client"
	"github.com/and161185/keepsake/internal/model"
	"github.com/gofrs/uuid/v5"
)

// ---- config/token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	UserID      uuid.UUID `json:"user_id"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "keepsake")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "keepsake")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveSession(s *client.Session) error {
	_ = os.MkdirAll(cfgDir(), 0o700)
	f, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tokenFile{AccessToken: s.Token, ExpiresAt: s.ExpiresAt, UserID: s.UserID})
}

func loadSession() (tokenFile, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return tokenFile{}, errors.New("no saved token (login required)")
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return tokenFile{}, err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return tokenFile{}, errors.New("no valid token (login required)")
	}
	return tf, nil
}

func dropSession() error {
	err := os.Remove(tokenPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// ---- transport ----

func loadTLS(caPath string, insecure bool) (*tls.Config, error) {
	if insecure {
		return &tls.Config{InsecureSkipVerify: true}, nil //nolint:gosec // dev flag
	}
	if caPath == "" {
		return nil, nil
	}
	pem, err := os.ReadFile(caPath)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("bad CA cert")
	}
	return &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

func newClient(addr, caPath string, insecure bool) (*client.Client, error) {
	tc, err := loadTLS(caPath, insecure)
	if err != nil {
		return nil, err
	}
	hc := &http.Client{Timeout: 30 * time.Second}
	if tc != nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.TLSClientConfig = tc
		hc.Transport = tr
	}
	return client.New(addr, hc), nil
}

// ---- utils ----

func readAll(p string) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(p)
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// splitTags turns "a, b,,c" into [a b c]; an empty string yields an empty slice.
func splitTags(s string) []string {
	out := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// fieldsFlag collects repeated -field values as text custom fields.
type fieldsFlag []model.CustomField

func (f *fieldsFlag) String() string { return fmt.Sprint(len(*f)) }

func (f *fieldsFlag) Set(v string) error {
	*f = append(*f, model.Text(v))
	return nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `ks CLI
Usage:
  ks -addr URL [-cacert file | -insecure] <cmd> [args]

Commands:
  version
  signup     -u <username> -e <email> -p <password>
  login      -u <username> -p <password>           (saves token)
  logout
  users
  user       -id <uuid>
  describe   -text <description>                   (own profile)
  collections
  collection -id <uuid>
  create     -name <n> -theme <t> [-desc <d>] [-image <url>] [-field <text>]...
  drop       -id <uuid>
  items      -c <uuid>
  item       -c <uuid> -id <n>
  add        -c <uuid> -name <n> [-tags a,b] [-field <text>]... [-file <notes|->]
  edit       -c <uuid> -id <n> [-name <n>] [-tags a,b] [-field <text>]...
  rm         -c <uuid> -id <n>
  like       -c <uuid> -id <n>
  unlike     -c <uuid> -id <n>
  tags       [-top N]
  tag        -name <n>
`)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

var errUsage = errors.New("usage")

// main parses global flags and dispatches the subcommand.
func main() {
	addr := flag.String("addr", "http://localhost:8080", "server base URL")
	caPath := flag.String("cacert", "", "CA cert (PEM)")
	insecure := flag.Bool("insecure", false, "skip cert verify (dev)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cli, err := newClient(*addr, *caPath, *insecure)
	if err != nil {
		fail(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := run(ctx, cli, flag.Args(), os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			usage()
			os.Exit(2)
		}
		fail(err)
	}
}

// run executes one subcommand against cli and prints its result to out.
func run(ctx context.Context, cli *client.Client, args []string, out io.Writer) error {
	cmd, rest := args[0], args[1:]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	switch cmd {

	case "version":
		fmt.Fprintf(out, "ks %s (%s)\n", version, buildDate)
		return nil

	case "signup":
		u := fs.String("u", "", "username")
		e := fs.String("e", "", "email")
		p := fs.String("p", "", "password")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *u == "" || *e == "" || *p == "" {
			return errors.New("need -u, -e and -p")
		}
		user, err := cli.Signup(ctx, *u, *e, *p)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, user.ID)
		return nil

	case "login":
		u := fs.String("u", "", "username")
		p := fs.String("p", "", "password")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *u == "" || *p == "" {
			return errors.New("need -u and -p")
		}
		s, err := cli.Login(ctx, *u, *p)
		if err != nil {
			return err
		}
		if err := saveSession(s); err != nil {
			return err
		}
		fmt.Fprintln(out, "ok")
		return nil

	case "logout":
		tf, err := loadSession()
		if err != nil {
			return err
		}
		if err := cli.Logout(ctx, tf.AccessToken); err != nil {
			return err
		}
		if err := dropSession(); err != nil {
			return err
		}
		fmt.Fprintln(out, "ok")
		return nil

	case "users":
		us, err := cli.Users(ctx)
		if err != nil {
			return err
		}
		printJSON(out, us)
		return nil

	case "user":
		id := fs.String("id", "", "user id")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		uid, err := uuid.FromString(*id)
		if err != nil {
			return fmt.Errorf("bad -id: %w", err)
		}
		u, err := cli.User(ctx, uid)
		if err != nil {
			return err
		}
		printJSON(out, u)
		return nil

	case "describe":
		text := fs.String("text", "", "profile description")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		tf, err := loadSession()
		if err != nil {
			return err
		}
		u, err := cli.SetDescription(ctx, tf.AccessToken, tf.UserID, *text)
		if err != nil {
			return err
		}
		printJSON(out, u)
		return nil

	case "collections":
		cs, err := cli.Collections(ctx)
		if err != nil {
			return err
		}
		type row struct {
			ID    uuid.UUID `json:"id"`
			Name  string    `json:"name"`
			Theme string    `json:"theme"`
			Items int       `json:"items"`
		}
		rows := make([]row, 0, len(cs))
		for _, c := range cs {
			rows = append(rows, row{ID: c.ID, Name: c.Name, Theme: c.Theme, Items: c.Items.Len()})
		}
		printJSON(out, rows)
		return nil

	case "collection":
		id := fs.String("id", "", "collection id")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		cid, err := uuid.FromString(*id)
		if err != nil {
			return fmt.Errorf("bad -id: %w", err)
		}
		c, err := cli.Collection(ctx, cid)
		if err != nil {
			return err
		}
		printJSON(out, c)
		return nil

	case "create":
		var fields fieldsFlag
		name := fs.String("name", "", "collection name")
		theme := fs.String("theme", "", "theme")
		desc := fs.String("desc", "", "description")
		image := fs.String("image", "", "image URL")
		fs.Var(&fields, "field", "text custom field (repeatable)")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *name == "" || *theme == "" {
			return errors.New("need -name and -theme")
		}
		tf, err := loadSession()
		if err != nil {
			return err
		}
		c, err := cli.CreateCollection(ctx, tf.AccessToken, client.NewCollection{
			Name: *name, Theme: *theme, Description: *desc, ImageURL: *image, CustomFields: fields,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, c.ID)
		return nil

	case "drop":
		id := fs.String("id", "", "collection id")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		cid, err := uuid.FromString(*id)
		if err != nil {
			return fmt.Errorf("bad -id: %w", err)
		}
		tf, err := loadSession()
		if err != nil {
			return err
		}
		if err := cli.DeleteCollection(ctx, tf.AccessToken, cid); err != nil {
			return err
		}
		fmt.Fprintln(out, "ok")
		return nil

	case "items":
		c := fs.String("c", "", "collection id")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		cid, err := uuid.FromString(*c)
		if err != nil {
			return fmt.Errorf("bad -c: %w", err)
		}
		items, err := cli.Items(ctx, cid)
		if err != nil {
			return err
		}
		printJSON(out, items)
		return nil

	case "item":
		c := fs.String("c", "", "collection id")
		id := fs.Int64("id", 0, "item id")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		cid, err := uuid.FromString(*c)
		if err != nil {
			return fmt.Errorf("bad -c: %w", err)
		}
		it, err := cli.Item(ctx, cid, *id)
		if err != nil {
			return err
		}
		printJSON(out, it)
		return nil

	case "add":
		var fields fieldsFlag
		c := fs.String("c", "", "collection id")
		name := fs.String("name", "", "item name")
		tags := fs.String("tags", "", "comma separated tags")
		notes := fs.String("file", "", "notes file ('-'=stdin), stored as a text field")
		fs.Var(&fields, "field", "text custom field (repeatable)")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		cid, err := uuid.FromString(*c)
		if err != nil {
			return fmt.Errorf("bad -c: %w", err)
		}
		if *name == "" {
			return errors.New("need -name")
		}
		if *notes != "" {
			b, err := readAll(*notes)
			if err != nil {
				return err
			}
			fields = append(fields, model.Text(string(b)))
		}
		tf, err := loadSession()
		if err != nil {
			return err
		}
		it, err := cli.AddItem(ctx, tf.AccessToken, cid, client.NewItem{
			Name: *name, Tags: splitTags(*tags), CustomFields: fields,
		})
		if err != nil {
			return err
		}
		printJSON(out, it)
		return nil

	case "edit":
		var fields fieldsFlag
		c := fs.String("c", "", "collection id")
		id := fs.Int64("id", 0, "item id")
		name := fs.String("name", "", "new name")
		tags := fs.String("tags", "", "comma separated tags, replaces the old ones")
		fs.Var(&fields, "field", "text custom field (repeatable)")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		cid, err := uuid.FromString(*c)
		if err != nil {
			return fmt.Errorf("bad -c: %w", err)
		}
		var p client.ItemPatch
		if *name != "" {
			p.Name = name
		}
		if *tags != "" {
			p.Tags = splitTags(*tags)
		}
		if len(fields) > 0 {
			p.CustomFields = fields
		}
		tf, err := loadSession()
		if err != nil {
			return err
		}
		it, err := cli.EditItem(ctx, tf.AccessToken, cid, *id, p)
		if err != nil {
			return err
		}
		printJSON(out, it)
		return nil

	case "rm", "like", "unlike":
		c := fs.String("c", "", "collection id")
		id := fs.Int64("id", 0, "item id")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		cid, err := uuid.FromString(*c)
		if err != nil {
			return fmt.Errorf("bad -c: %w", err)
		}
		tf, err := loadSession()
		if err != nil {
			return err
		}
		if cmd == "rm" {
			if err := cli.DeleteItem(ctx, tf.AccessToken, cid, *id); err != nil {
				return err
			}
			fmt.Fprintln(out, "ok")
			return nil
		}
		it, err := cli.Like(ctx, tf.AccessToken, cid, *id, cmd == "unlike")
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d likes\n", len(it.LikedBy))
		return nil

	case "tags":
		top := fs.Int("top", 0, "only the N most used")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		ts, err := cli.Tags(ctx, *top)
		if err != nil {
			return err
		}
		printJSON(out, ts)
		return nil

	case "tag":
		name := fs.String("name", "", "tag name")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		tf, err := loadSession()
		if err != nil {
			return err
		}
		t, err := cli.CreateTag(ctx, tf.AccessToken, *name)
		if err != nil {
			return err
		}
		printJSON(out, t)
		return nil

	default:
		return errUsage
	}
}

// ---- helpers ----

func fail(err error) {
	var ae *client.APIError
	if errors.As(err, &ae) {
		fmt.Fprintf(os.Stderr, "api error: status=%d msg=%s\n", ae.Status, ae.Message)
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
