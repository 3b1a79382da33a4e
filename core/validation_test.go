package core

import (
	"errors"
	"testing"
)

func TestValidateDocument(t *testing.T) {
	valid := NewDeclaration([]string{"name"}, "apple")

	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name:    "valid document",
			doc:     NewDocument(1, "apple", 0, []*Declaration{valid}),
			wantErr: nil,
		},
		{
			name:    "valid document without declarations",
			doc:     NewDocument(7, nil, 3, nil),
			wantErr: nil,
		},
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "zero id",
			doc:     NewDocument(0, "apple", 0, nil),
			wantErr: ErrZeroDocumentID,
		},
		{
			name:    "negative origin index",
			doc:     NewDocument(1, "apple", -1, nil),
			wantErr: ErrNegativeOriginIndex,
		},
		{
			name:    "invalid declaration",
			doc:     NewDocument(1, "apple", 0, []*Declaration{nil}),
			wantErr: ErrInvalidDeclaration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDeclaration(t *testing.T) {
	tests := []struct {
		name    string
		decl    *Declaration
		wantErr error
	}{
		{
			name:    "valid declaration",
			decl:    NewDeclaration([]string{"tags", "0"}, "red"),
			wantErr: nil,
		},
		{
			name:    "scalar record with empty path",
			decl:    NewDeclaration(nil, "red"),
			wantErr: nil,
		},
		{
			name: "stale normalized path",
			decl: &Declaration{
				Path:             []string{"title"},
				NormalizedPath:   "name",
				NormalizedWeight: 1,
			},
			wantErr: ErrPathMismatch,
		},
		{
			name: "weight above one",
			decl: &Declaration{
				Path:             []string{"title"},
				NormalizedPath:   "title",
				NormalizedWeight: 1.5,
			},
			wantErr: ErrWeightOutOfRange,
		},
		{
			name: "negative weight",
			decl: &Declaration{
				Path:             []string{"title"},
				NormalizedPath:   "title",
				NormalizedWeight: -0.1,
			},
			wantErr: ErrWeightOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDeclaration(tt.decl)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDeclaration() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDeclaration() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidDeclaration) {
				t.Errorf("ValidateDeclaration() error = %v, should wrap ErrInvalidDeclaration", err)
			}
		})
	}
}
