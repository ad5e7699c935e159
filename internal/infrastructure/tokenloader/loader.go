package tokenloader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"aave_pnl/internal/domain/entity"
	"aave_pnl/internal/pkg/utils"
)

const defaultTokenDirectoryPath = "data/tokens"

// TokenFileLoader merges per-chain token files (<dir>/<identifier>.json) into chain definitions.
type TokenFileLoader struct {
	tokenDirPath string
	loggerInfo   func(msg string, args ...any)
	loggerWarn   func(msg string, args ...any)
}

// NewTokenLoader creates a TokenFileLoader. An empty dir falls back to data/tokens.
func NewTokenLoader(dir string, loggerInfo func(msg string, args ...any), loggerWarn func(msg string, args ...any)) *TokenFileLoader {
	if dir == "" {
		dir = defaultTokenDirectoryPath
	}
	return &TokenFileLoader{
		tokenDirPath: dir,
		loggerInfo:   loggerInfo,
		loggerWarn:   loggerWarn,
	}
}

// MergeTokens returns defs with file descriptors replacing same-symbol entries or appended.
// A missing directory is not an error; a malformed file is.
func (l *TokenFileLoader) MergeTokens(defs []entity.ChainConfig) ([]entity.ChainConfig, error) {
	files, err := os.ReadDir(l.tokenDirPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if l.loggerInfo != nil {
				l.loggerInfo("Token directory not found, using built-in token lists", "path", l.tokenDirPath)
			}
			return defs, nil
		}
		return nil, fmt.Errorf("failed to read token directory %s: %w", l.tokenDirPath, err)
	}

	byIdentifier := make(map[string]int, len(defs))
	out := make([]entity.ChainConfig, len(defs))
	for i, d := range defs {
		out[i] = d.Clone()
		byIdentifier[strings.ToLower(d.Identifier)] = i
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(strings.ToLower(file.Name()), ".json") {
			continue
		}
		identifier := strings.ToLower(strings.TrimSuffix(file.Name(), filepath.Ext(file.Name())))
		idx, ok := byIdentifier[identifier]
		if !ok {
			if l.loggerWarn != nil {
				l.loggerWarn("Token file found for an unknown chain, skipping", "file", file.Name())
			}
			continue
		}

		path := filepath.Join(l.tokenDirPath, file.Name())
		tokens, err := utils.LoadTokensFromJSON(path)
		if err != nil {
			return nil, &entity.ConfigurationError{Field: "tokens." + identifier, Reason: fmt.Sprintf("failed to parse %s: %v", path, err)}
		}

		merged := 0
		for _, tok := range tokens {
			if tok.Symbol == "" || tok.UnderlyingAddress == "" {
				if l.loggerWarn != nil {
					l.loggerWarn("Skipping token without symbol or underlying address", "file", path)
				}
				continue
			}
			if tok.Decimals == 0 {
				tok.Decimals = 18
			}
			replaced := false
			for j := range out[idx].Tokens {
				if strings.EqualFold(out[idx].Tokens[j].Symbol, tok.Symbol) {
					out[idx].Tokens[j] = tok
					replaced = true
					break
				}
			}
			if !replaced {
				out[idx].Tokens = append(out[idx].Tokens, tok)
			}
			merged++
		}
		if l.loggerInfo != nil {
			l.loggerInfo("Token overrides loaded", "chain", identifier, "count", merged, "path", path)
		}
	}
	return out, nil
}
