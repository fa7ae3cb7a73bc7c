package intent

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ent0n29/deskmate/internal/reminders"
)

const (
	reminderHelp = "Sorry, I couldn't set that reminder. Please try again with a format like 'remind me to take medicine in 5 minutes'."
	cancelHelp   = "Sorry, I couldn't cancel that reminder. Please try again with a format like 'cancel reminder 1'."
	greeting     = "Hello! How can I help you today?"
	wellbeing    = "I'm doing well, thank you for asking! How are you?"
	farewell     = "Goodbye! Have a great day!"
	searchFailed = "Sorry, I couldn't complete that search."
	videoFailed  = "Sorry, I couldn't play that on YouTube."
	jokeFailed   = "Sorry, I couldn't fetch a joke right now."
	webFailed    = "Sorry, I couldn't perform the web search."
)

var firstNumber = regexp.MustCompile(`\d+`)

func contains(words ...string) func(string) bool {
	return func(text string) bool {
		for _, w := range words {
			if strings.Contains(text, w) {
				return true
			}
		}
		return false
	}
}

func hasPrefix(prefix string) func(string) bool {
	return func(text string) bool { return strings.HasPrefix(text, prefix) }
}

func always(string) bool { return true }

func (d *Dispatcher) buildRules() []rule {
	return []rule{
		{name: "reminder_add", match: contains("remind me to"), handle: d.addReminder},
		{name: "reminder_cancel", match: contains("cancel reminder"), handle: d.cancelReminder},
		{name: "reminder_list", match: contains("list reminders"), handle: d.listReminders},
		{name: "app_open", match: hasPrefix("open "), handle: d.openApp},
		{name: "app_close", match: hasPrefix("close "), handle: d.closeApp},
		{name: "greeting", match: contains("hello", "hi"), handle: d.reply(greeting)},
		{name: "wellbeing", match: contains("how are you"), handle: d.reply(wellbeing)},
		{name: "farewell", match: contains("goodbye", "bye", "quit", "exit"), handle: d.farewell},
		{name: "search", match: contains("search"), handle: d.search},
		{name: "video", match: contains("youtube"), handle: d.playVideo},
		{name: "joke", match: contains("joke"), handle: d.joke},
		{name: "web_search", match: always, handle: d.webSearch},
	}
}

func (d *Dispatcher) addReminder(ctx context.Context, text string) (Outcome, bool) {
	r, err := d.scheduleReminder(ctx, text)
	if err != nil {
		d.fail(ctx, "reminder_add", err, reminderHelp)
		return Continue, true
	}
	d.deps.Metrics.ObserveReminder("created")
	d.say(ctx, fmt.Sprintf("Okay, I'll remind you to %s at %s. This is reminder number %d.",
		r.Message, reminders.SpokenTime(r.DueAt), r.ID))
	return Continue, true
}

func (d *Dispatcher) scheduleReminder(ctx context.Context, text string) (reminders.Reminder, error) {
	message, clause, err := reminders.ParseCommand(text)
	if err != nil {
		return reminders.Reminder{}, err
	}
	offset, err := reminders.ParseOffset(clause)
	if err != nil {
		return reminders.Reminder{}, err
	}
	return d.deps.Reminders.Add(ctx, message, offset)
}

func (d *Dispatcher) cancelReminder(ctx context.Context, text string) (Outcome, bool) {
	digits := firstNumber.FindString(text)
	if digits == "" {
		d.fail(ctx, "reminder_cancel", errors.New("no reminder id in utterance"), cancelHelp)
		return Continue, true
	}

	id, err := strconv.Atoi(digits)
	if err == nil && d.deps.Reminders.Cancel(ctx, id) {
		d.deps.Metrics.ObserveReminder("cancelled")
		d.say(ctx, "Cancelled reminder "+digits)
		return Continue, true
	}
	d.say(ctx, "Couldn't find reminder "+digits)
	return Continue, true
}

func (d *Dispatcher) listReminders(ctx context.Context, _ string) (Outcome, bool) {
	d.say(ctx, d.deps.Reminders.Describe())
	return Continue, true
}

func (d *Dispatcher) openApp(ctx context.Context, text string) (Outcome, bool) {
	name := strings.TrimSpace(strings.ReplaceAll(text, "open ", ""))
	if !d.deps.Apps.Known(name) {
		return Continue, false
	}
	if d.deps.Apps.Open(ctx, name) {
		d.say(ctx, "Opening "+name)
	} else {
		d.say(ctx, "Sorry, I couldn't open "+name)
	}
	return Continue, true
}

func (d *Dispatcher) closeApp(ctx context.Context, text string) (Outcome, bool) {
	name := strings.TrimSpace(strings.ReplaceAll(text, "close ", ""))
	if !d.deps.Apps.Known(name) {
		return Continue, false
	}
	if d.deps.Apps.Close(ctx, name) {
		d.say(ctx, "Closing "+name)
	} else {
		d.say(ctx, "Sorry, I couldn't close "+name)
	}
	return Continue, true
}

func (d *Dispatcher) reply(text string) func(context.Context, string) (Outcome, bool) {
	return func(ctx context.Context, _ string) (Outcome, bool) {
		d.say(ctx, text)
		return Continue, true
	}
}

func (d *Dispatcher) farewell(ctx context.Context, _ string) (Outcome, bool) {
	d.say(ctx, farewell)
	return Stop, true
}

func (d *Dispatcher) search(ctx context.Context, text string) (Outcome, bool) {
	query := strings.TrimSpace(strings.ReplaceAll(text, "search", ""))
	d.say(ctx, "Searching for "+query)
	if err := d.deps.Browser.Search(ctx, query); err != nil {
		d.fail(ctx, "search", err, searchFailed)
	}
	return Continue, true
}

func (d *Dispatcher) playVideo(ctx context.Context, text string) (Outcome, bool) {
	query := strings.TrimSpace(strings.ReplaceAll(text, "youtube", ""))
	d.say(ctx, fmt.Sprintf("Playing %s on YouTube", query))
	if err := d.deps.Browser.PlayVideo(ctx, query); err != nil {
		d.fail(ctx, "video", err, videoFailed)
	}
	return Continue, true
}

func (d *Dispatcher) joke(ctx context.Context, _ string) (Outcome, bool) {
	j, err := d.deps.Jokes.Fetch(ctx)
	if err != nil {
		d.fail(ctx, "joke", err, jokeFailed)
		return Continue, true
	}
	d.say(ctx, j.Text())
	return Continue, true
}

func (d *Dispatcher) webSearch(ctx context.Context, text string) (Outcome, bool) {
	d.say(ctx, "I'll search the web for information about: "+text)
	if err := d.deps.Browser.Search(ctx, text); err != nil {
		d.fail(ctx, "web_search", err, webFailed)
	}
	return Continue, true
}
