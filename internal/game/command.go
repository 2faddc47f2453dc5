package game

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrUnknownCommand is returned by Exec for a name no Command answers to.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrUsage is returned by Exec when a command gets the wrong arguments.
	ErrUsage = errors.New("usage")
)

// Command is one player action reachable from the command line.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Usage lists the arguments.
	Usage string
	// Help is the one-line description.
	Help string
	// Args is the exact argument count.
	Args int

	run func(ctx context.Context, g *Game, args []string) (string, error)
}

// Commands returns every command Exec understands.
func Commands() []Command {
	return []Command{
		{Name: "status", Aliases: []string{"st"}, Help: "Show level, gold, energy and plots", run: runStatus},
		{Name: "plant", Aliases: []string{"p"}, Usage: "<plot> <crop>", Help: "Sow a crop in an empty plot", Args: 2, run: runPlant},
		{Name: "harvest", Aliases: []string{"h"}, Usage: "<plot>", Help: "Harvest a grown plot", Args: 1, run: runHarvest},
		{Name: "quests", Help: "List quests that can be completed", run: runQuests},
		{Name: "quest", Aliases: []string{"q"}, Usage: "<id>", Help: "Complete a quest", Args: 1, run: runQuest},
		{Name: "claim", Usage: "<event>", Help: "Claim an active seasonal event", Args: 1, run: runClaim},
		{Name: "help", Help: "List commands", run: runHelp},
	}
}

func lookup(name string) (Command, bool) {
	name = strings.ToLower(name)
	for _, c := range Commands() {
		if c.Name == name {
			return c, true
		}
		for _, a := range c.Aliases {
			if a == name {
				return c, true
			}
		}
	}
	return Command{}, false
}

// Exec runs one command line, args[0] being the command name, and returns
// the text to show the player.
//
// Postcondition: Returns ErrUnknownCommand or ErrUsage without touching the slot.
func (g *Game) Exec(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("%w: empty command line", ErrUsage)
	}
	cmd, ok := lookup(args[0])
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCommand, args[0])
	}
	if len(args)-1 != cmd.Args {
		return "", fmt.Errorf("%w: %s %s", ErrUsage, cmd.Name, cmd.Usage)
	}
	return cmd.run(ctx, g, args[1:])
}

func parsePlot(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: plot must be a number, got %q", ErrUsage, s)
	}
	return i, nil
}

func runStatus(_ context.Context, g *Game, _ []string) (string, error) {
	st := g.Status()
	var b strings.Builder
	fmt.Fprintf(&b, "level %d (%d/%d xp)  gold %d  energy %d/%d\n",
		st.Level, st.XP, st.XPToNext, st.Gold, st.Energy, st.MaxEnergy)
	fmt.Fprintf(&b, "plots: %d grown, %d growing", st.Grown, st.Growing)
	if len(st.Events) > 0 {
		fmt.Fprintf(&b, "\nevents: %s", strings.Join(st.Events, ", "))
	}
	return b.String(), nil
}

func runPlant(ctx context.Context, g *Game, args []string) (string, error) {
	slot, err := parsePlot(args[0])
	if err != nil {
		return "", err
	}
	if err := g.Farm.Plant(ctx, slot, args[1]); err != nil {
		return "", err
	}
	return fmt.Sprintf("planted %s in plot %d", args[1], slot), nil
}

func runHarvest(ctx context.Context, g *Game, args []string) (string, error) {
	slot, err := parsePlot(args[0])
	if err != nil {
		return "", err
	}
	h, err := g.Farm.Harvest(ctx, slot)
	if err != nil {
		return "", err
	}
	out := fmt.Sprintf("harvested %d %s (+%d farming xp)", h.Count, h.Item, h.XP)
	if h.SkillLevels > 0 {
		out += fmt.Sprintf(", farming +%d level", h.SkillLevels)
	}
	return out, nil
}

func runQuests(_ context.Context, g *Game, _ []string) (string, error) {
	defs := g.Quests.Available()
	if len(defs) == 0 {
		return "no quests available", nil
	}
	lines := make([]string, 0, len(defs))
	for _, q := range defs {
		lines = append(lines, fmt.Sprintf("%s: %s", q.ID, q.Name))
	}
	return strings.Join(lines, "\n"), nil
}

func runQuest(ctx context.Context, g *Game, args []string) (string, error) {
	q, err := g.Quests.Complete(ctx, args[0])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("completed %s", q.Name), nil
}

func runClaim(ctx context.Context, g *Game, args []string) (string, error) {
	if err := g.Events.Claim(ctx, args[0]); err != nil {
		return "", err
	}
	return fmt.Sprintf("claimed %s", args[0]), nil
}

func runHelp(context.Context, *Game, []string) (string, error) {
	cmds := Commands()
	lines := make([]string, 0, len(cmds))
	for _, c := range cmds {
		lines = append(lines, strings.TrimSpace(fmt.Sprintf("%-8s %-14s %s", c.Name, c.Usage, c.Help)))
	}
	return strings.Join(lines, "\n"), nil
}
