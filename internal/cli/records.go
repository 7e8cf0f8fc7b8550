package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lynixity/lynix-go/internal/datasync"
	"github.com/lynixity/lynix-go/internal/domain"
)

// --- Notes ---

func (e *env) notesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Manage notes",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List notes, most recently modified first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.enter(domain.PageNotepad); err != nil {
				return err
			}
			if err := e.app.Notes.Load(ctxOf(cmd)); err != nil {
				return err
			}
			notes := e.app.Notes.Items()
			if len(notes) == 0 {
				fmt.Fprintln(e.out, "No notes found")
				return nil
			}
			t := e.table("ID", "Title", "Modified")
			for _, n := range notes {
				t.Append([]string{strconv.FormatInt(n.ID, 10), n.Title, millis(n.LastModified)})
			}
			t.Render()
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := e.findNote(cmd, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "%s\n%s\n\n%s\n", n.Title, muted.Sprint(millis(n.LastModified)), n.Content)
			return nil
		},
	}

	add := &cobra.Command{
		Use:   "add",
		Short: "Create a note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.enter(domain.PageNotepad); err != nil {
				return err
			}
			title, _ := cmd.Flags().GetString("title")
			content, _ := cmd.Flags().GetString("content")
			n, err := e.app.Notes.Create(ctxOf(cmd), domain.Note{Title: title, Content: content})
			if err != nil {
				return err
			}
			e.ok("Note %d created", n.ID)
			return nil
		},
	}
	add.Flags().StringP("title", "t", "", "note title")
	add.Flags().StringP("content", "c", "", "note content")

	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a note's title or content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := e.findNote(cmd, args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("title") {
				n.Title, _ = cmd.Flags().GetString("title")
			}
			if cmd.Flags().Changed("content") {
				n.Content, _ = cmd.Flags().GetString("content")
			}
			if _, err := e.app.Notes.Update(ctxOf(cmd), n); err != nil {
				return err
			}
			e.ok("Note %d saved", n.ID)
			return nil
		},
	}
	edit.Flags().StringP("title", "t", "", "new title")
	edit.Flags().StringP("content", "c", "", "new content")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.enter(domain.PageNotepad); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := e.app.Notes.Remove(ctxOf(cmd), id); err != nil {
				return err
			}
			e.ok("Note %d deleted", id)
			return nil
		},
	}

	cmd.AddCommand(list, show, add, edit, rm)
	return cmd
}

func (e *env) findNote(cmd *cobra.Command, arg string) (domain.Note, error) {
	if err := e.enter(domain.PageNotepad); err != nil {
		return domain.Note{}, err
	}
	id, err := parseID(arg)
	if err != nil {
		return domain.Note{}, err
	}
	if err := e.app.Notes.Load(ctxOf(cmd)); err != nil {
		return domain.Note{}, err
	}
	n, ok := e.app.Notes.Find(id)
	if !ok {
		return domain.Note{}, &domain.ErrNotFound{Resource: "Note", ID: arg}
	}
	return n, nil
}

// --- Contacts ---

func (e *env) contactsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Manage the address book",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List contacts by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.enter(domain.PageContact); err != nil {
				return err
			}
			if err := e.app.Contacts.Load(ctxOf(cmd)); err != nil {
				return err
			}
			contacts := e.app.Contacts.Items()
			if len(contacts) == 0 {
				fmt.Fprintln(e.out, "No contacts found")
				return nil
			}
			t := e.table("ID", "Name", "Email", "Phone")
			for _, c := range contacts {
				t.Append([]string{strconv.FormatInt(c.ID, 10), c.Name, deref(c.Email), deref(c.Phone)})
			}
			t.Render()
			return nil
		},
	}

	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.enter(domain.PageContact); err != nil {
				return err
			}
			email, _ := cmd.Flags().GetString("email")
			phone, _ := cmd.Flags().GetString("phone")
			c, err := e.app.Contacts.Create(ctxOf(cmd), domain.Contact{
				Name:  args[0],
				Email: domain.StringPtr(email),
				Phone: domain.StringPtr(phone),
			})
			if err != nil {
				return err
			}
			e.ok("Contact %d added", c.ID)
			return nil
		},
	}
	add.Flags().StringP("email", "e", "", "email address")
	add.Flags().StringP("phone", "P", "", "phone number")

	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.enter(domain.PageContact); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := e.app.Contacts.Load(ctxOf(cmd)); err != nil {
				return err
			}
			c, ok := e.app.Contacts.Find(id)
			if !ok {
				return &domain.ErrNotFound{Resource: "Contact", ID: args[0]}
			}
			flags := cmd.Flags()
			if flags.Changed("name") {
				c.Name, _ = flags.GetString("name")
			}
			if flags.Changed("email") {
				v, _ := flags.GetString("email")
				c.Email = domain.StringPtr(v)
			}
			if flags.Changed("phone") {
				v, _ := flags.GetString("phone")
				c.Phone = domain.StringPtr(v)
			}
			if _, err := e.app.Contacts.Update(ctxOf(cmd), c); err != nil {
				return err
			}
			e.ok("Contact %d saved", id)
			return nil
		},
	}
	edit.Flags().StringP("name", "n", "", "new name")
	edit.Flags().StringP("email", "e", "", "new email address")
	edit.Flags().StringP("phone", "P", "", "new phone number")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.enter(domain.PageContact); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := e.app.Contacts.Remove(ctxOf(cmd), id); err != nil {
				return err
			}
			e.ok("Contact %d deleted", id)
			return nil
		},
	}

	cmd.AddCommand(list, add, edit, rm)
	return cmd
}

// --- Chat ---

func (e *env) chatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Read and send chat messages",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			convs, err := e.conversations(cmd)
			if err != nil {
				return err
			}
			if len(convs) == 0 {
				fmt.Fprintln(e.out, "No conversations yet")
				return nil
			}
			names := e.userNames(cmd)
			t := e.table("Contact", "Name", "Messages", "Last message")
			for _, c := range convs {
				last := c.Messages[len(c.Messages)-1]
				t.Append([]string{
					strconv.FormatInt(c.ContactID, 10),
					nameOf(names, c.ContactID),
					strconv.Itoa(len(c.Messages)),
					truncate(last.Text, 40),
				})
			}
			t.Render()
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <contact-id>",
		Short: "Print the conversation with a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contactID, err := parseID(args[0])
			if err != nil {
				return err
			}
			convs, err := e.conversations(cmd)
			if err != nil {
				return err
			}
			names := e.userNames(cmd)
			for _, c := range convs {
				if c.ContactID != contactID {
					continue
				}
				for _, m := range c.Messages {
					fmt.Fprintf(e.out, "%s %s: %s\n", muted.Sprint(millis(m.Timestamp)), nameOf(names, m.SenderID), m.Text)
				}
				return nil
			}
			fmt.Fprintln(e.out, "No messages yet")
			return nil
		},
	}

	send := &cobra.Command{
		Use:   "send <contact-id> <text...>",
		Short: "Send a message",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.enter(domain.PageChat); err != nil {
				return err
			}
			contactID, err := parseID(args[0])
			if err != nil {
				return err
			}
			m, err := e.app.Messages.Create(ctxOf(cmd), domain.ChatMessage{
				SenderID:   e.owner(),
				ReceiverID: contactID,
				Text:       strings.Join(args[1:], " "),
				Timestamp:  time.Now().UnixMilli(),
			})
			if err != nil {
				return err
			}
			e.ok("Message %d sent", m.ID)
			return nil
		},
	}

	cmd.AddCommand(list, show, send)
	return cmd
}

func (e *env) conversations(cmd *cobra.Command) ([]domain.Conversation, error) {
	if err := e.enter(domain.PageChat); err != nil {
		return nil, err
	}
	if err := e.app.Messages.Load(ctxOf(cmd)); err != nil {
		return nil, err
	}
	return datasync.Conversations(e.owner(), e.app.Messages.Items()), nil
}

// userNames maps user ids to usernames. Names are cosmetic, so a failed
// lookup yields an empty map.
func (e *env) userNames(cmd *cobra.Command) map[int64]string {
	users, err := e.app.API.ListUsers(ctxOf(cmd), e.owner())
	if err != nil {
		return map[int64]string{}
	}
	names := make(map[int64]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}
	return names
}

func nameOf(names map[int64]string, id int64) string {
	if n, ok := names[id]; ok {
		return n
	}
	return "#" + strconv.FormatInt(id, 10)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// --- Mail ---

func (e *env) mailCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mail",
		Short: "Browse LocalMail",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List mail, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.loadMail(cmd); err != nil {
				return err
			}
			mails := e.app.Mails.Items()
			if len(mails) == 0 {
				fmt.Fprintln(e.out, "Inbox is empty")
				return nil
			}
			t := e.table("ID", "From", "Subject", "Received", "")
			for _, m := range mails {
				unread := success.Sprint("●")
				if m.Read {
					unread = ""
				}
				t.Append([]string{strconv.FormatInt(m.ID, 10), m.From.Name, m.Subject, millis(m.Timestamp), unread})
			}
			t.Render()
			return nil
		},
	}

	read := &cobra.Command{
		Use:   "read <id>",
		Short: "Print a mail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := e.loadMail(cmd); err != nil {
				return err
			}
			m, ok := e.app.Mails.Find(id)
			if !ok {
				return &domain.ErrNotFound{Resource: "Mail", ID: args[0]}
			}
			fmt.Fprintf(e.out, "From:    %s <%s>\n", m.From.Name, m.From.Email)
			fmt.Fprintf(e.out, "To:      %s\n", m.To)
			fmt.Fprintf(e.out, "Date:    %s\n", millis(m.Timestamp))
			fmt.Fprintf(e.out, "Subject: %s\n\n%s\n", m.Subject, m.Body)
			return nil
		},
	}

	cmd.AddCommand(list, read)
	return cmd
}

func (e *env) loadMail(cmd *cobra.Command) error {
	if err := e.enter(domain.PageLocalMail); err != nil {
		return err
	}
	return e.app.Mails.Load(ctxOf(cmd))
}
