package cli

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/erazemk/katalog/internal/app"
	"github.com/erazemk/katalog/internal/client"
	"github.com/erazemk/katalog/internal/imaging"
	"github.com/erazemk/katalog/internal/model"
)

func newLoginCmd(rt *Runtime) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !changed(cmd, "password") {
				p, err := promptSecret(cmd, "Password")
				if err != nil {
					return err
				}
				password = p
			}

			return rt.withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				if err := a.Auth.Login(ctx, strings.TrimSpace(email), password); err != nil {
					return err
				}
				writeDone(cmd.OutOrStdout(), "Signed in as "+strings.TrimSpace(email))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newSignupCmd(rt *Runtime) *cobra.Command {
	var reg model.Registration
	var picture string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !changed(cmd, "password") {
				p, err := promptSecret(cmd, "Password")
				if err != nil {
					return err
				}
				reg.Password = p
			}
			if !changed(cmd, "confirm-password") {
				p, err := promptSecret(cmd, "Confirm password")
				if err != nil {
					return err
				}
				reg.ConfirmPassword = p
			}

			var file *client.File
			if picture != "" {
				f, err := readImageFile(picture)
				if err != nil {
					return err
				}
				file = f
			}

			return rt.withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				if err := a.Auth.Register(ctx, reg, file); err != nil {
					return err
				}
				writeDone(cmd.OutOrStdout(), "Account created. You can sign in now.")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&reg.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&reg.LastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&reg.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&reg.Phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&reg.Role, "role", model.RoleBuyer, "Account role (buyer or store)")
	cmd.Flags().StringVar(&reg.Password, "password", "", "Password (prompted when omitted)")
	cmd.Flags().StringVar(&reg.ConfirmPassword, "confirm-password", "", "Password again (prompted when omitted)")
	cmd.Flags().StringVar(&picture, "picture", "", "Profile picture file")
	return cmd
}

func newLogoutCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				if err := a.Auth.Logout(ctx); err != nil {
					return err
				}
				writeDone(cmd.OutOrStdout(), "Signed out")
				return nil
			})
		},
	}
}

type whoamiOutput struct {
	Subject   string     `json:"subject,omitempty"`
	Email     string     `json:"email,omitempty"`
	Role      string     `json:"role,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Expired   bool       `json:"expired"`
}

func newWhoamiCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show what the stored token says about the operator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				if err := requireSession(ctx, a); err != nil {
					return err
				}
				id, err := a.Auth.Whoami(ctx)
				if err != nil {
					return err
				}

				out := whoamiOutput{
					Subject: id.Subject,
					Email:   id.Email,
					Role:    id.Role,
					Expired: id.Expired(time.Now()),
				}
				if !id.ExpiresAt.IsZero() {
					exp := id.ExpiresAt
					out.ExpiresAt = &exp
				}

				return writeOut(cmd, rt, out, func() string {
					expires := "-"
					if out.ExpiresAt != nil {
						expires = out.ExpiresAt.Local().Format(time.DateTime)
						if out.Expired {
							expires += " (expired)"
						}
					}
					return renderTable([]string{"Subject", "Email", "Role", "Expires"},
						[][]string{{dash(out.Subject), dash(out.Email), dash(out.Role), expires}})
				})
			})
		},
	}
}

// readImageFile loads a local image for upload. The size and type checks
// match the ones the item form applies.
func readImageFile(path string) (*client.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	ct := imaging.DetectType(mime.TypeByExtension(filepath.Ext(path)), data)
	if err := imaging.CheckPhoto(ct, int64(len(data))); err != nil {
		return nil, err
	}
	return &client.File{Name: filepath.Base(path), ContentType: ct, Data: data}, nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
