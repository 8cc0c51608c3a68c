package command

import (
	"fmt"
	"strconv"
	"strings"
)

// ErrNotACommand is returned when the input matches no order form.
type ErrNotACommand struct {
	Input string
}

func (e *ErrNotACommand) Error() string {
	return fmt.Sprintf("not a command: %q", e.Input)
}

// Parse reads a single order.
func Parse(s string) (Command, error) {
	toks, err := lex(s)
	if err != nil {
		return nil, &ErrNotACommand{Input: s}
	}
	p := &parser{toks: toks}
	cmd, err := p.parse()
	if err != nil {
		return nil, &ErrNotACommand{Input: s}
	}
	return cmd, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) parse() (Command, error) {
	switch {
	case p.word("status"):
		return &StatusCommand{}, nil
	case p.word("time"):
		return &TimeCommand{}, nil
	case p.word("extract"):
		return &ExtractCommand{}, nil
	case p.word("stop"):
		return &StopCommand{}, nil
	case p.word("lead"):
		return p.parseMove()
	case p.word("invade"):
		return p.parseInvade()
	case p.word("defect"):
		return p.parseDefect()
	case p.word("promote"):
		return p.parsePromote("promote")
	case p.word("demote"):
		return p.parsePromote("demote")
	case p.word("codeword"):
		return p.parseCodeword()
	case p.word(ActionAttack), p.word(ActionOppose), p.word(ActionSupport):
		return p.parseSkirmish(p.toks[p.pos-1].text)
	}
	return nil, fmt.Errorf("unknown command")
}

// lead (NUM|all)? to DEST ("," DEST)*
func (p *parser) parseMove() (Command, error) {
	cmd := &MoveCommand{}
	if n, ok := p.number(); ok {
		cmd.Amount = n
	} else if p.word("all") {
		cmd.All = true
	} else {
		cmd.All = true // bare "lead to X" moves everyone
	}
	if !p.word("to") {
		return nil, fmt.Errorf("lead: expected 'to'")
	}
	for {
		dest, err := p.parseDestination()
		if err != nil {
			return nil, err
		}
		cmd.Dests = append(cmd.Dests, dest)
		if !p.comma() {
			break
		}
	}
	if len(cmd.Dests) == 0 {
		return nil, fmt.Errorf("lead: no destination")
	}
	return cmd, nil
}

// DEST := LOC ["#" NUM] | "#" NUM | "*"
func (p *parser) parseDestination() (Destination, error) {
	var d Destination
	if p.star() {
		d.Path = true
		return d, nil
	}
	if loc, ok := p.location(); ok {
		d.Name = loc
	}
	if p.hash() {
		n, ok := p.number()
		if !ok {
			return d, fmt.Errorf("destination: expected sector number")
		}
		d.Sector = n
		d.HasSector = true
	}
	if d.Name == "" && !d.HasSector {
		return d, fmt.Errorf("destination: empty")
	}
	return d, nil
}

// invade LOC
func (p *parser) parseInvade() (Command, error) {
	loc, ok := p.location()
	if !ok {
		return nil, fmt.Errorf("invade: expected location")
	}
	return &InvadeCommand{Where: loc}, nil
}

// (attack|oppose|support) ["#" NUM] with NUM [TROOP|"CODEWORD"]
func (p *parser) parseSkirmish(action string) (Command, error) {
	cmd := &SkirmishCommand{Action: action}
	if p.hash() {
		n, ok := p.number()
		if !ok {
			return nil, fmt.Errorf("skirmish: expected target id")
		}
		cmd.Target = int64(n)
	}
	if !p.word("with") {
		return nil, fmt.Errorf("skirmish: expected 'with'")
	}
	n, ok := p.number()
	if !ok {
		return nil, fmt.Errorf("skirmish: expected amount")
	}
	cmd.Amount = n
	// The rest of the line, if any, names the troops.
	var rest []string
	for p.pos < len(p.toks) {
		rest = append(rest, p.toks[p.pos].text)
		p.pos++
	}
	cmd.Troop = strings.Join(rest, " ")
	return cmd, nil
}

// defect [to (orangered|periwinkle)]
func (p *parser) parseDefect() (Command, error) {
	cmd := &DefectCommand{Team: -1}
	if p.word("to") {
		switch {
		case p.word("orangered"):
			cmd.Team = 0
		case p.word("periwinkle"):
			cmd.Team = 1
		default:
			return nil, fmt.Errorf("defect: unknown team")
		}
	}
	return cmd, nil
}

// (promote|demote) NAME
func (p *parser) parsePromote(direction string) (Command, error) {
	name, ok := p.anyWord()
	if !ok {
		return nil, fmt.Errorf("%s: expected a name", direction)
	}
	return &PromoteCommand{Direction: direction, Who: strings.TrimPrefix(name, "/u/")}, nil
}

// codeword (remove (all|"CODE") | status ["CODE"] | "CODE" is (TROOP|"WORD"))
func (p *parser) parseCodeword() (Command, error) {
	cmd := &CodewordCommand{}
	switch {
	case p.word("remove"):
		cmd.Remove = true
		if p.word("all") {
			cmd.All = true
			return cmd, nil
		}
		code, ok := p.quoted()
		if !ok {
			return nil, fmt.Errorf("codeword remove: expected a code")
		}
		cmd.Code = code
		return cmd, nil
	case p.word("status"):
		cmd.Status = true
		if code, ok := p.quoted(); ok {
			cmd.Code = code
		}
		return cmd, nil
	}
	code, ok := p.quoted()
	if !ok {
		return nil, fmt.Errorf("codeword: expected a quoted code")
	}
	cmd.Code = code
	if !p.word("is") {
		return nil, fmt.Errorf("codeword: expected 'is'")
	}
	if word, ok := p.quoted(); ok {
		cmd.Word = word
		return cmd, nil
	}
	if word, ok := p.anyWord(); ok {
		cmd.Word = word
		return cmd, nil
	}
	return nil, fmt.Errorf("codeword: expected a meaning")
}

// Token helpers. Each consumes on success.

func (p *parser) word(w string) bool {
	if p.pos < len(p.toks) && p.toks[p.pos].kind == tokWord && p.toks[p.pos].text == w {
		p.pos++
		return true
	}
	return false
}

func (p *parser) anyWord() (string, bool) {
	if p.pos < len(p.toks) && p.toks[p.pos].kind == tokWord {
		p.pos++
		return p.toks[p.pos-1].text, true
	}
	return "", false
}

func (p *parser) quoted() (string, bool) {
	if p.pos < len(p.toks) && p.toks[p.pos].kind == tokQuoted {
		p.pos++
		return p.toks[p.pos-1].text, true
	}
	return "", false
}

func (p *parser) number() (int, bool) {
	if p.pos < len(p.toks) && p.toks[p.pos].kind == tokWord {
		if n, err := strconv.Atoi(p.toks[p.pos].text); err == nil {
			p.pos++
			return n, true
		}
	}
	return 0, false
}

func (p *parser) hash() bool {
	if p.pos < len(p.toks) && p.toks[p.pos].kind == tokHash {
		p.pos++
		return true
	}
	return false
}

func (p *parser) comma() bool {
	if p.pos < len(p.toks) && p.toks[p.pos].kind == tokComma {
		p.pos++
		return true
	}
	return false
}

func (p *parser) star() bool {
	if p.pos < len(p.toks) && p.toks[p.pos].kind == tokStar {
		p.pos++
		return true
	}
	return false
}

// location is a quoted name, a board reference, or a bare word.
func (p *parser) location() (string, bool) {
	if s, ok := p.quoted(); ok {
		return strings.ToLower(s), true
	}
	if p.pos < len(p.toks) && p.toks[p.pos].kind == tokWord {
		w := p.toks[p.pos].text
		p.pos++
		return strings.TrimPrefix(w, "/r/"), true
	}
	return "", false
}
